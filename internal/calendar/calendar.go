// Package calendar implements UK tax-year windows, day-key normalization,
// and the 30-day-forward iteration the Bed-&-Breakfast rule walks over.
package calendar

import "time"

// DayKey is a UTC-midnight calendar day, serialized as ISO YYYY-MM-DD.
// All cross-day comparisons in the engine occur on DayKeys, never on raw
// timestamps (spec.md §4.2).
type DayKey struct {
	t time.Time
}

// NewDayKey truncates t to a UTC-midnight day key, discarding any
// time-of-day component.
func NewDayKey(t time.Time) DayKey {
	u := t.UTC()
	return DayKey{time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDayKey parses an ISO YYYY-MM-DD string into a DayKey.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return DayKey{}, err
	}
	return NewDayKey(t), nil
}

// String renders the day key in ISO YYYY-MM-DD form.
func (d DayKey) String() string {
	return d.t.Format("2006-01-02")
}

// Time returns the underlying UTC-midnight time.Time.
func (d DayKey) Time() time.Time { return d.t }

// Before reports whether d occurs strictly before other.
func (d DayKey) Before(other DayKey) bool { return d.t.Before(other.t) }

// After reports whether d occurs strictly after other.
func (d DayKey) After(other DayKey) bool { return d.t.After(other.t) }

// Equal reports whether d and other are the same calendar day.
func (d DayKey) Equal(other DayKey) bool { return d.t.Equal(other.t) }

// AddDays returns the day key n calendar days after d (n may be negative).
func (d DayKey) AddDays(n int) DayKey {
	return DayKey{d.t.AddDate(0, 0, n)}
}

// Weekday reports the day of week for d.
func (d DayKey) Weekday() time.Weekday { return d.t.Weekday() }

// TaxYearStart returns 6 April of year y at UTC midnight.
func TaxYearStart(y int) DayKey {
	return DayKey{time.Date(y, time.April, 6, 0, 0, 0, 0, time.UTC)}
}

// TaxYearEnd returns 5 April of year y+1 at UTC midnight.
func TaxYearEnd(y int) DayKey {
	return DayKey{time.Date(y+1, time.April, 5, 0, 0, 0, 0, time.UTC)}
}

// InTaxYear reports whether d falls within [TaxYearStart(y), TaxYearEnd(y)],
// inclusive on both bounds (spec.md §4.2).
func InTaxYear(d DayKey, y int) bool {
	start, end := TaxYearStart(y), TaxYearEnd(y)
	return !d.Before(start) && !d.After(end)
}

// BnBWindow returns the 30 days D+1, ..., D+30 inclusive that the
// Bed-&-Breakfast rule walks forward over, correctly spanning month and
// year boundaries including leap days.
func BnBWindow(d DayKey) []DayKey {
	days := make([]DayKey, 0, 30)
	for i := 1; i <= 30; i++ {
		days = append(days, d.AddDays(i))
	}
	return days
}

// Epoch is the internal start-of-time named in spec.md §4.11. The
// calculation driver does not consult it: it walks only the days that carry
// ingested events, whatever their date.
var Epoch = DayKey{time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)}

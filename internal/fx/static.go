package fx

import (
	"context"
	"fmt"
	"time"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

// StaticTable is an in-memory rate table keyed by currency and mode-derived
// period key. It is used directly by tests and by callers that pre-fetch
// rates into memory before a calculate call (spec.md §9, "Async FX fetching").
//
// The quoted convention is 1 GBP = rate(ccy, date), matching spec.md §4.3.
type StaticTable struct {
	mode  Mode
	rates map[string]map[string]dec.Decimal // currency -> periodKey -> rate
}

// NewStaticTable builds an empty table for the given mode.
func NewStaticTable(mode Mode) *StaticTable {
	return &StaticTable{mode: mode, rates: make(map[string]map[string]dec.Decimal)}
}

// Set records the rate for currency on the period containing date: the
// whole calendar month under Monthly mode, or the single day under Daily
// mode.
func (s *StaticTable) Set(currency string, date calendar.DayKey, rate dec.Decimal) {
	key := s.periodKey(date)
	byCcy, ok := s.rates[currency]
	if !ok {
		byCcy = make(map[string]dec.Decimal)
		s.rates[currency] = byCcy
	}
	byCcy[key] = rate
}

// periodKey resolves date to the lookup key for the table's mode, applying
// weekend carry-back for Daily mode per spec.md §4.3.
func (s *StaticTable) periodKey(date calendar.DayKey) string {
	if s.mode == Monthly {
		return fmt.Sprintf("%04d-%02d", date.Time().Year(), date.Time().Month())
	}
	return effectiveDailyDate(date).String()
}

// effectiveDailyDate carries Saturday/Sunday back to the preceding Friday.
func effectiveDailyDate(date calendar.DayKey) calendar.DayKey {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDays(-1)
	case time.Sunday:
		return date.AddDays(-2)
	default:
		return date
	}
}

// ToGBP implements Oracle.
func (s *StaticTable) ToGBP(_ context.Context, amount dec.Decimal, currency string, date calendar.DayKey) (dec.Decimal, error) {
	byCcy, ok := s.rates[currency]
	if !ok {
		return dec.Decimal{}, &RateMissingError{Currency: currency, Date: date}
	}
	rate, ok := byCcy[s.periodKey(date)]
	if !ok {
		return dec.Decimal{}, &RateMissingError{Currency: currency, Date: date}
	}
	return amount.Div(rate), nil
}

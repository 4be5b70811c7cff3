// Package audit implements the per-applied-rule audit log: one entry per
// matching-rule application, corporate action, dividend, or interest
// grouping, keyed the way report consumers traverse it (spec.md §3, §6).
package audit

import (
	"fmt"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

// Tag identifies which rule or event produced an entry.
type Tag string

const (
	SameDay         Tag = "SAME_DAY"
	BedAndBreakfast Tag = "BED_AND_BREAKFAST"
	Section104      Tag = "SECTION_104"
	ShortCover      Tag = "SHORT_COVER"
	ERI             Tag = "ERI"
	DividendTag     Tag = "DIVIDEND"
	InterestTag     Tag = "INTEREST"
)

// Entry is one audit record: the rule tag, the disposed/affected quantity,
// the gross amount, apportioned fees, the computed gain or loss, the
// allowable cost, and the pool's post-state (spec.md §3).
type Entry struct {
	Date          calendar.DayKey
	CategoryKey   string
	Tag           Tag
	Symbol        string
	Quantity      dec.Decimal
	GrossAmount   dec.Decimal
	Fees          dec.Decimal
	Gain          dec.Decimal
	AllowableCost dec.Decimal
	PostPoolQty   dec.Decimal
	PostPoolCost  dec.Decimal
	Detail        string
}

// CategoryKey builds the grouping key spec.md §3 defines: one of
// buy$<sym>, sell$<sym>, short_cover$<sym>, eri$<sym>, spinoff$<src>$<dst>,
// dividend$<sym>, interest$<broker>$<ccy>.
func CategoryKey(kind, a string, b ...string) string {
	if len(b) == 0 {
		return fmt.Sprintf("%s$%s", kind, a)
	}
	return fmt.Sprintf("%s$%s$%s", kind, a, b[0])
}

// Log is the append-only, owned-by-the-engine audit trail (spec.md §3
// "Lifecycles": "The engine never frees historical audit entries").
type Log struct {
	entries []Entry
	byCat   map[string][]int
}

// New returns an empty audit log.
func New() *Log {
	return &Log{byCat: make(map[string][]int)}
}

// Append records e, grouped under e.CategoryKey.
func (l *Log) Append(e Entry) {
	l.entries = append(l.entries, e)
	l.byCat[e.CategoryKey] = append(l.byCat[e.CategoryKey], len(l.entries)-1)
}

// All returns every entry in append order.
func (l *Log) All() []Entry {
	return append([]Entry(nil), l.entries...)
}

// ByCategory returns the entries recorded under categoryKey, in append
// order.
func (l *Log) ByCategory(categoryKey string) []Entry {
	idxs := l.byCat[categoryKey]
	out := make([]Entry, len(idxs))
	for i, idx := range idxs {
		out[i] = l.entries[idx]
	}
	return out
}

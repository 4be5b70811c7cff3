// Package corpaction models the three corporate-action inputs the engine
// consumes outside the ordinary acquire/dispose stream: excess reported
// income (ERI), stock splits, and spin-offs (spec.md §3, §4.8 step on
// corporate actions, §4.11 step 2).
package corpaction

import (
	"fmt"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

type eriKey struct {
	date   string
	symbol string
}

// ERIEvent is one excess-reported-income uplift (spec.md §3): at most one
// per (date, symbol); a later Add for the same key overwrites the earlier
// one.
type ERIEvent struct {
	Date           calendar.DayKey
	Symbol         string
	AmountPerShare dec.Decimal
}

// ERIStore holds ERI events keyed by (date, symbol).
type ERIStore struct {
	events map[eriKey]ERIEvent
}

// NewERIStore returns an empty ERI store.
func NewERIStore() *ERIStore {
	return &ERIStore{events: make(map[eriKey]ERIEvent)}
}

// Add records ev, overwriting any existing event at the same (date, symbol).
func (s *ERIStore) Add(ev ERIEvent) {
	s.events[eriKey{date: ev.Date.String(), symbol: ev.Symbol}] = ev
}

// Get returns the ERI event at (date, symbol), if any.
func (s *ERIStore) Get(date calendar.DayKey, symbol string) (ERIEvent, bool) {
	ev, ok := s.events[eriKey{date: date.String(), symbol: symbol}]
	return ev, ok
}

// All returns every recorded ERI event, unordered. The day-driver groups
// them by date itself.
func (s *ERIStore) All() []ERIEvent {
	out := make([]ERIEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	return out
}

// SpinOffEvent transfers a proportion of a parent holding's cost basis to a
// new destination security (spec.md §3).
type SpinOffEvent struct {
	Date           calendar.DayKey
	SourceSymbol   string
	DestSymbol     string
	CostProportion dec.Decimal // in [0, 1]
}

// Validate reports whether CostProportion lies within the documented range.
func (e SpinOffEvent) Validate() error {
	if e.CostProportion.IsNegative() || e.CostProportion.GreaterThan(dec.One) {
		return fmt.Errorf("spinoff %s->%s: cost_proportion %s out of [0,1]", e.SourceSymbol, e.DestSymbol, e.CostProportion)
	}
	return nil
}

// SplitTable represents stock splits as a (symbol, day) -> multiplier map,
// consulted by the Bed-&-Breakfast walk (spec.md §3 "StockSplit").
type SplitTable struct {
	factors map[eriKey]dec.Decimal
}

// NewSplitTable returns an empty split table.
func NewSplitTable() *SplitTable {
	return &SplitTable{factors: make(map[eriKey]dec.Decimal)}
}

// Set records a split multiplier for symbol effective on date.
func (s *SplitTable) Set(symbol string, date calendar.DayKey, multiplier dec.Decimal) {
	s.factors[eriKey{date: date.String(), symbol: symbol}] = multiplier
}

// Get returns the multiplier recorded for (symbol, date), or One if none.
func (s *SplitTable) Get(symbol string, date calendar.DayKey) dec.Decimal {
	if m, ok := s.factors[eriKey{date: date.String(), symbol: symbol}]; ok {
		return m
	}
	return dec.One
}

// Has reports whether a split is recorded for (symbol, date).
func (s *SplitTable) Has(symbol string, date calendar.DayKey) bool {
	_, ok := s.factors[eriKey{date: date.String(), symbol: symbol}]
	return ok
}

// Package txlog implements the per-(date, symbol) aggregation of
// quantities, amounts, fees and attached ERI references the matching rules
// read from (spec.md §3, §4.4).
package txlog

import (
	"fmt"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

// ERIRef is an excess-reported-income figure attached to an acquisition-day
// aggregate, carried forward by the Bed-&-Breakfast walk (spec.md §4.6).
type ERIRef struct {
	Date           calendar.DayKey
	AmountPerShare dec.Decimal
}

// Entry is the aggregate stored at one (date, symbol) key. Same-key entries
// accumulate additively (spec.md §4.4): Qty and Fees are always >= 0; the
// sign of Amount is documented per call site.
type Entry struct {
	Qty    dec.Decimal
	Amount dec.Decimal
	Fees   dec.Decimal
	ERIs   []ERIRef
}

type key struct {
	date   string
	symbol string
}

// Log is one of the three independent logs named in spec.md §3:
// acquisitions, disposals, or bnb_consumed.
type Log struct {
	entries map[key]*Entry
}

// New returns an empty log.
func New() *Log {
	return &Log{entries: make(map[key]*Entry)}
}

func keyOf(date calendar.DayKey, symbol string) key {
	return key{date: date.String(), symbol: symbol}
}

// Append adds qty/amount/fees (and any ERI references) to the entry at
// (date, symbol), creating it if absent. Existing entries accumulate their
// fields additively; ERI lists are concatenated (spec.md §4.4).
func (l *Log) Append(date calendar.DayKey, symbol string, qty, amountGBP, feesGBP dec.Decimal, eris ...ERIRef) {
	k := keyOf(date, symbol)
	e, ok := l.entries[k]
	if !ok {
		e = &Entry{Qty: dec.Zero, Amount: dec.Zero, Fees: dec.Zero}
		l.entries[k] = e
	}
	e.Qty = e.Qty.Add(qty)
	e.Amount = e.Amount.Add(amountGBP)
	e.Fees = e.Fees.Add(feesGBP)
	e.ERIs = append(e.ERIs, eris...)
}

// Get returns the entry at (date, symbol), or a zero-valued default if
// absent (spec.md §4.4).
func (l *Log) Get(date calendar.DayKey, symbol string) Entry {
	k := keyOf(date, symbol)
	if e, ok := l.entries[k]; ok {
		return *e
	}
	return Entry{Qty: dec.Zero, Amount: dec.Zero, Fees: dec.Zero}
}

// Has reports whether an entry exists at (date, symbol).
func (l *Log) Has(date calendar.DayKey, symbol string) bool {
	_, ok := l.entries[keyOf(date, symbol)]
	return ok
}

// String renders the key for diagnostics/audit category derivation.
func (e ERIRef) String() string {
	return fmt.Sprintf("eri@%s=%s/share", e.Date, e.AmountPerShare)
}

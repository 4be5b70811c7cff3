// Package fx implements the exchange-rate provisioning contract the
// calculation engine consumes (spec.md §4.3, §6): a deterministic
// to_gbp(amount, currency, date) lookup, with adapters for static tables
// and a Redis-fronted cache over a slower upstream.
package fx

import (
	"context"
	"fmt"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

// RateMissingError is raised when no rate can be produced for a
// (currency, date) pair. It propagates as a fatal error from whichever
// engine operation needed the conversion (spec.md §4.3, §7).
type RateMissingError struct {
	Currency string
	Date     calendar.DayKey
}

func (e *RateMissingError) Error() string {
	return fmt.Sprintf("fx: no rate available for %s on %s", e.Currency, e.Date)
}

// Oracle is the contract the engine consumes. Implementations must be
// deterministic per (currency, date) for the duration of a single
// calculate call (spec.md §5).
type Oracle interface {
	// ToGBP converts amount, denominated in currency, to GBP using the
	// rate in effect on date. GBP inputs bypass conversion entirely and
	// must be handled by ToGBP's caller, not by the oracle.
	ToGBP(ctx context.Context, amount dec.Decimal, currency string, date calendar.DayKey) (dec.Decimal, error)
}

// Convert is the convenience entry point callers in the engine use: it
// special-cases GBP (no oracle consultation, per spec.md §4.3) and
// otherwise delegates to the oracle.
func Convert(ctx context.Context, o Oracle, amount dec.Decimal, currency string, date calendar.DayKey) (dec.Decimal, error) {
	if currency == "GBP" {
		return amount, nil
	}
	return o.ToGBP(ctx, amount, currency, date)
}

// Mode distinguishes the two rate-source shapes a StaticTable or upstream
// provider may offer; it is opaque to the engine but meaningful to the
// adapters in this package (spec.md §4.3).
type Mode int

const (
	// Monthly rates: one rate per calendar month, returned for every date
	// in that month.
	Monthly Mode = iota
	// Daily rates with weekend carry-back: Saturday and Sunday resolve to
	// the preceding Friday's rate.
	Daily
)

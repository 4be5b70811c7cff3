// Package decimal provides the exact base-10 arithmetic primitives the
// calculation engine relies on: rounding policies and the approximate
// equality predicates used to validate broker-supplied amounts.
package decimal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimal is the arbitrary-precision signed value used everywhere in the
// engine. It is a direct alias of shopspring/decimal's type so callers can
// use its full arithmetic surface (Add, Sub, Mul, Div, Cmp, ...) alongside
// the rounding/comparison helpers below.
type Decimal = decimal.Decimal

// Zero and One are the canonical constants named in spec.md §3.
var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
)

// FromInt64 lifts a whole-unit integer (e.g. an allowance in whole GBP)
// into a Decimal.
func FromInt64(v int64) Decimal {
	return decimal.NewFromInt(v)
}

// approxEqualTolerance is the 1p tolerance used by ApproxEqual (spec.md §4.1).
var approxEqualTolerance = decimal.NewFromFloat(0.01)

// priceTolerance is the 0.0001 tolerance ApproxEqualPriceRounding allows
// between a recomputed price and the price on record.
var priceTolerance = decimal.NewFromFloat(0.0001)

// New parses a decimal string. A non-parseable string is a fatal,
// unrecoverable condition for the caller: the engine never constructs a
// Decimal from untrusted input without checking this error.
func New(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimal: cannot parse %q: %w", s, err)
	}
	return d, nil
}

// RoundHalfUp rounds v to places decimal places using round-half-away-from-zero,
// the policy reserved for the final chargeable-gain figure and display values
// (spec.md §4.1).
func RoundHalfUp(v Decimal, places int32) Decimal {
	return v.Round(places)
}

// RoundHalfEven rounds v to places decimal places using banker's rounding,
// the default policy for intermediate arithmetic (spec.md §4.1).
func RoundHalfEven(v Decimal, places int32) Decimal {
	return v.RoundBank(places)
}

// NormalizeAmount caps the fractional growth of a currency-converted or
// ratio-derived amount before it is written back into a pool. Applied after
// every such computation per spec.md §4.1.
func NormalizeAmount(v Decimal) Decimal {
	return RoundHalfUp(v, 10)
}

// ApproxEqual reports whether a and b agree within the universal 1p
// tolerance used throughout the engine (spec.md §4.1, §8 property 5).
func ApproxEqual(a, b Decimal) bool {
	return a.Sub(b).Abs().LessThan(approxEqualTolerance)
}

// TransactionKind distinguishes the two call sites ApproxEqualPriceRounding
// is used from; the tolerance logic is identical for both, but callers pass
// it through for clearer error messages.
type TransactionKind int

const (
	Acquisition TransactionKind = iota
	Disposal
)

func (k TransactionKind) String() string {
	if k == Acquisition {
		return "acquisition"
	}
	return "disposal"
}

// ApproxEqualPriceRounding reports whether the recorded amount is consistent
// with qty, price and fees, allowing for broker-side rounding. It is true iff
// either the price recomputed from amount agrees with price within 0.0001,
// or the amounts agree within the universal 1p tolerance (spec.md §4.1).
//
// amountOnRecord and fees are given in the transaction's original currency;
// kind is accepted for error-message context only and does not change the
// comparison.
func ApproxEqualPriceRounding(amountOnRecord, qty, price, fees Decimal, kind TransactionKind) bool {
	if qty.IsZero() {
		return ApproxEqual(amountOnRecord.Abs(), fees)
	}

	// A Sell's amount is broker-native gross proceeds before fees are
	// deducted from what the investor nets; a Buy's amount is the gross
	// cost. Either way |amount| is compared with qty × price as it stands:
	// fees are not added or subtracted, and the sign is ignored.
	grossFromAmount := amountOnRecord.Abs()
	recomputedPrice := grossFromAmount.Div(qty)
	if recomputedPrice.Sub(price).Abs().LessThan(priceTolerance) {
		return true
	}

	recomputedAmount := qty.Mul(price)
	return ApproxEqual(grossFromAmount, recomputedAmount)
}

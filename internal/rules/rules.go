// Package rules implements the three share-matching rules in strict
// precedence — Same-Day, Bed-&-Breakfast, Section 104 — as pure functions
// over the shared transaction logs and position store (spec.md §4.5–§4.7).
package rules

import (
	"cgtengine/internal/audit"
	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/position"
	"cgtengine/internal/txlog"
	"cgtengine/internal/warn"
)

// Basis carries the figures derived from the disposal's own aggregate that
// stay constant across Same-Day, B&B, and Section 104 matching: the
// original total disposed quantity and fees (used as the apportionment
// denominator/numerator in every rule), and the GBP price per share.
type Basis struct {
	FeesOrigQty   dec.Decimal
	FeesOrigTotal dec.Decimal
	Price         dec.Decimal
}

// NewBasis derives a Basis from a disposal log aggregate: Price is the
// aggregate's GBP amount per original share.
func NewBasis(disposalEntry txlog.Entry) Basis {
	price := dec.Zero
	if !disposalEntry.Qty.IsZero() {
		price = disposalEntry.Amount.Div(disposalEntry.Qty)
	}
	return Basis{
		FeesOrigQty:   disposalEntry.Qty,
		FeesOrigTotal: disposalEntry.Fees,
		Price:         price,
	}
}

func apportionFees(basis Basis, matched dec.Decimal) dec.Decimal {
	if basis.FeesOrigQty.IsZero() {
		return dec.Zero
	}
	return basis.FeesOrigTotal.Mul(matched).Div(basis.FeesOrigQty)
}

func min(a, b dec.Decimal) dec.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// checkZeroPoolResidual implements the §4.5 tie-break note: when a match
// brings a symbol's pool quantity to exactly zero, its cost must round to
// zero at 23 decimal places, or a DataQuality warning is logged.
func checkZeroPoolResidual(pool *position.Store, symbol string, date calendar.DayKey, newQty, newCost dec.Decimal) *warn.W {
	if !newQty.IsZero() {
		return nil
	}
	if dec.RoundHalfUp(newCost, 23).IsZero() {
		return nil
	}
	w := warn.NewAt(warn.Warning, warn.DataQuality, symbol, date,
		"pool quantity reached zero but residual cost did not round to zero at 23dp: "+newCost.String())
	return &w
}

package rules

import (
	"cgtengine/internal/audit"
	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/position"
	"cgtengine/internal/txlog"
	"cgtengine/internal/warn"
)

// ApplySameDay matches qtyRem against the same-day acquisition aggregate on
// (date, symbol), per spec.md §4.5. It returns the residual quantity left
// to hand to Bed-&-Breakfast and any warnings raised along the way.
func ApplySameDay(
	acquisitions *txlog.Log,
	pool *position.Store,
	auditLog *audit.Log,
	date calendar.DayKey,
	symbol string,
	basis Basis,
	qtyRem dec.Decimal,
) (dec.Decimal, []warn.W) {
	A := acquisitions.Get(date, symbol)
	if A.Qty.LessThanOrEqual(dec.Zero) {
		return qtyRem, nil
	}

	var warnings []warn.W

	matched := min(qtyRem, A.Qty)
	fees := apportionFees(basis, matched)
	acqCost := dec.NormalizeAmount(matched.Mul(A.Amount).Div(A.Qty))
	acqFees := A.Fees.Mul(matched).Div(A.Qty)
	proceeds := matched.Mul(basis.Price)
	allowableCost := acqCost.Add(acqFees).Add(fees)
	gain := proceeds.Sub(allowableCost)

	preQty := pool.PoolQuantity(symbol)
	preCost := pool.PoolCost(symbol)
	postQty := preQty.Sub(matched)
	postCost := preCost.Sub(acqCost)
	if w := checkZeroPoolResidual(pool, symbol, date, postQty, postCost); w != nil {
		warnings = append(warnings, *w)
	}
	pool.AdjustPool(symbol, matched.Neg(), acqCost.Neg())

	auditLog.Append(audit.Entry{
		Date:          date,
		CategoryKey:   audit.CategoryKey("sell", symbol),
		Tag:           audit.SameDay,
		Symbol:        symbol,
		Quantity:      matched,
		GrossAmount:   proceeds,
		Fees:          fees,
		Gain:          gain,
		AllowableCost: allowableCost,
		PostPoolQty:   postQty,
		PostPoolCost:  postCost,
	})

	return qtyRem.Sub(matched), warnings
}

package rules

import (
	"fmt"

	"cgtengine/internal/audit"
	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/position"
	"cgtengine/internal/warn"
)

// InvariantViolationError signals a condition spec.md §4.7/§4.13/§7 marks
// as a programming-error invariant violation: it indicates a bug upstream
// in the matching pipeline, not a data problem, and is always fatal.
type InvariantViolationError struct {
	Description string
}

func (e *InvariantViolationError) Error() string {
	return "invariant violation: " + e.Description
}

// ApplySection104 consumes all remaining disposal quantity against the
// pool's average cost (spec.md §4.7). qtyRem must not exceed the pool's
// current quantity; a caller that lets it through after Same-Day and B&B
// have already run has a logic error (spec.md §4.7, §4.13).
func ApplySection104(
	pool *position.Store,
	auditLog *audit.Log,
	date calendar.DayKey,
	symbol string,
	basis Basis,
	qtyRem dec.Decimal,
) ([]warn.W, error) {
	if qtyRem.LessThanOrEqual(dec.Zero) {
		return nil, nil
	}

	poolQty := pool.PoolQuantity(symbol)
	poolCost := pool.PoolCost(symbol)
	if qtyRem.GreaterThan(poolQty) {
		return nil, &InvariantViolationError{Description: fmt.Sprintf(
			"section 104 disposal of %s %s exceeds pool quantity %s after same-day/B&B matching",
			qtyRem, symbol, poolQty)}
	}

	amountDelta := dec.NormalizeAmount(qtyRem.Mul(poolCost).Div(poolQty))
	fees := apportionFees(basis, qtyRem)
	proceeds := qtyRem.Mul(basis.Price)
	allowableCost := amountDelta.Add(fees)
	gain := proceeds.Sub(allowableCost)

	var warnings []warn.W
	postQty := poolQty.Sub(qtyRem)
	postCost := poolCost.Sub(amountDelta)
	if w := checkZeroPoolResidual(pool, symbol, date, postQty, postCost); w != nil {
		warnings = append(warnings, *w)
	}
	pool.AdjustPool(symbol, qtyRem.Neg(), amountDelta.Neg())

	auditLog.Append(audit.Entry{
		Date:          date,
		CategoryKey:   audit.CategoryKey("sell", symbol),
		Tag:           audit.Section104,
		Symbol:        symbol,
		Quantity:      qtyRem,
		GrossAmount:   proceeds,
		Fees:          fees,
		Gain:          gain,
		AllowableCost: allowableCost,
		PostPoolQty:   postQty,
		PostPoolCost:  postCost,
	})

	return warnings, nil
}

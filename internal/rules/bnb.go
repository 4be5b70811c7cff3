package rules

import (
	"fmt"

	"cgtengine/internal/audit"
	"cgtengine/internal/calendar"
	"cgtengine/internal/corpaction"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/position"
	"cgtengine/internal/txlog"
	"cgtengine/internal/warn"
)

// ERIDistribution is one ERI-distribution side effect raised while walking
// the B&B window (spec.md §4.6 step 10), surfaced downstream via
// Report.ERIDistributions (SPEC_FULL.md §4.16).
type ERIDistribution struct {
	Date   calendar.DayKey
	Symbol string
	Amount dec.Decimal
}

// ApplyBedAndBreakfast walks forward from the disposal date over the 30
// days spec.md §4.6 defines, matching qtyRem against the first acquisitions
// with available quantity. It mutates the pool, acc the audit log, and
// records consumption into bnbConsumed so the day-driver's later visit to
// that acquisition day does not double-count the matched shares
// (spec.md §4.8, §9 "Cyclic aggregation during B&B"). A bnbConsumed entry
// that already exceeds the acquisition's own quantity is an
// *InvariantViolationError, not a warning: it means the caller's own
// bookkeeping is broken, the same class of fault ApplySection104 guards
// against for pool overruns.
func ApplyBedAndBreakfast(
	acquisitions, disposals, bnbConsumed *txlog.Log,
	splits *corpaction.SplitTable,
	eriStore *corpaction.ERIStore,
	pool *position.Store,
	auditLog *audit.Log,
	disposalDate calendar.DayKey,
	symbol string,
	basis Basis,
	qtyRem dec.Decimal,
	targetTaxYear int,
) (dec.Decimal, []ERIDistribution, []warn.W, error) {
	if qtyRem.LessThanOrEqual(dec.Zero) {
		return qtyRem, nil, nil, nil
	}

	splitMultiplier := dec.One
	var eris []corpaction.ERIEvent
	if ev, ok := eriStore.Get(disposalDate, symbol); ok {
		eris = append(eris, ev)
	}

	var distributions []ERIDistribution
	var warnings []warn.W

	for _, T := range calendar.BnBWindow(disposalDate) {
		if splits.Has(symbol, T) {
			splitMultiplier = splitMultiplier.Mul(splits.Get(symbol, T))
		}
		if ev, ok := eriStore.Get(T, symbol); ok {
			eris = append(eris, ev)
		}

		if !acquisitions.Has(T, symbol) {
			continue
		}
		A := acquisitions.Get(T, symbol)
		B := bnbConsumed.Get(T, symbol)
		X := disposals.Get(T, symbol)

		if B.Qty.GreaterThan(A.Qty) {
			return qtyRem, distributions, warnings, &InvariantViolationError{Description: fmt.Sprintf(
				"bnb_consumed %s exceeds acquired quantity %s for %s on %s", B.Qty, A.Qty, symbol, T)}
		}
		if X.Qty.GreaterThan(A.Qty) {
			// Same-day disposal already consumed this acquisition.
			continue
		}

		availableAdj := A.Qty.Div(splitMultiplier).Sub(X.Qty).Sub(B.Qty)
		if availableAdj.LessThanOrEqual(dec.Zero) {
			continue
		}
		if A.Amount.IsZero() {
			warnings = append(warnings, warn.NewAt(warn.Warning, warn.DataQuality, symbol, T,
				"acquisition with zero amount inside B&B window signals an intra-window split; skipped"))
			continue
		}

		matched := min(qtyRem, availableAdj)
		fees := apportionFees(basis, matched)
		acqCost := dec.NormalizeAmount(matched.Mul(A.Amount).Div(A.Qty.Div(splitMultiplier)))
		acqFees := A.Fees.Mul(matched).Div(A.Qty.Div(splitMultiplier))
		proceeds := matched.Mul(basis.Price)
		allowableCost := acqCost.Add(acqFees).Add(fees)
		gain := proceeds.Sub(allowableCost)

		var distSum dec.Decimal = dec.Zero
		for _, eri := range eris {
			dist := matched.Mul(eri.AmountPerShare)
			if calendar.InTaxYear(eri.Date, targetTaxYear) {
				distributions = append(distributions, ERIDistribution{Date: eri.Date, Symbol: symbol, Amount: dist})
				distSum = distSum.Add(dist)
			}
		}

		poolQty := pool.PoolQuantity(symbol)
		poolCost := pool.PoolCost(symbol)
		amountDelta := dec.NormalizeAmount(matched.Mul(poolCost).Div(poolQty))
		postQty := poolQty.Sub(matched)
		postCost := poolCost.Sub(amountDelta)
		if w := checkZeroPoolResidual(pool, symbol, disposalDate, postQty, postCost); w != nil {
			warnings = append(warnings, *w)
		}
		pool.AdjustPool(symbol, matched.Neg(), amountDelta.Neg())

		consumedQty := matched.Mul(splitMultiplier)
		acqFeesSlice := dec.Zero
		if !A.Qty.IsZero() {
			acqFeesSlice = A.Fees.Mul(consumedQty).Div(A.Qty)
		}
		bnbConsumed.Append(T, symbol, consumedQty, amountDelta.Add(distSum), acqFeesSlice)

		auditLog.Append(audit.Entry{
			Date:          disposalDate,
			CategoryKey:   audit.CategoryKey("sell", symbol),
			Tag:           audit.BedAndBreakfast,
			Symbol:        symbol,
			Quantity:      matched,
			GrossAmount:   proceeds,
			Fees:          fees,
			Gain:          gain,
			AllowableCost: allowableCost,
			PostPoolQty:   postQty,
			PostPoolCost:  postCost,
			Detail:        "matched against acquisition on " + T.String(),
		})

		qtyRem = qtyRem.Sub(matched)
		if qtyRem.IsZero() {
			break
		}
	}

	return qtyRem, distributions, warnings, nil
}

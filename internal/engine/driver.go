package engine

import (
	"context"
	"strings"

	"cgtengine/internal/audit"
	"cgtengine/internal/calendar"
	"cgtengine/internal/corpaction"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/rules"
	"cgtengine/internal/warn"
)

// Calculate runs the day-indexed driver over every transaction ingested so
// far, restricted to days up to and including TaxYearEnd(taxYear)
// (spec.md §4.11). It returns a Report or a fatal error on the first
// invariant violation or missing FX rate encountered.
func (e *Engine) Calculate(ctx context.Context, taxYear int) (*Report, error) {
	e.warnings = nil
	var capitalGain, capitalLoss dec.Decimal
	eriDistTotals := make(map[string]dec.Decimal)

	taxYearStart := calendar.TaxYearStart(taxYear)
	taxYearEnd := calendar.TaxYearEnd(taxYear)

	eriByDay := groupERIByDay(e.eriStore.All())
	spinoffsByDay := groupSpinoffsByDay(e.spinoffs)

	for _, d := range e.sortedActiveDays() {
		if d.After(taxYearEnd) {
			break
		}
		inYear := !d.Before(taxYearStart)

		for _, symbol := range symbolsOnDay(e.acquisitionDays, d) {
			e.processAcquisitionDay(d, symbol, inYear)
		}

		for _, ev := range eriByDay[d.String()] {
			e.processERIDay(d, ev)
		}

		for _, ev := range spinoffsByDay[d.String()] {
			e.processSpinoffDay(d, ev)
		}

		for _, symbol := range symbolsOnDay(e.disposalDays, d) {
			gain, dists, err := e.processDisposalDay(d, symbol, taxYear)
			if err != nil {
				return nil, err
			}
			for _, dist := range dists {
				k := audit.CategoryKey("eri", dist.Date.String(), dist.Symbol)
				eriDistTotals[k] = eriDistTotals[k].Add(dist.Amount)
			}
			if inYear {
				if gain.IsPositive() {
					capitalGain = capitalGain.Add(gain)
				} else if gain.IsNegative() {
					capitalLoss = capitalLoss.Add(gain)
				}
			}
		}

		for _, compositeKey := range symbolsOnDay(e.shortCoverDays, d) {
			gain := e.processShortCoverDay(d, compositeKey, inYear)
			if inYear {
				if gain.IsPositive() {
					capitalGain = capitalGain.Add(gain)
				} else if gain.IsNegative() {
					capitalLoss = capitalLoss.Add(gain)
				}
			}
		}
	}

	dividendsTotal, err := e.processDividends(ctx, taxYear)
	if err != nil {
		return nil, err
	}
	interestTotal, err := e.processInterest(ctx, taxYear)
	if err != nil {
		return nil, err
	}

	for symbol, lots := range e.pool.AllOpenShorts() {
		for _, lot := range lots {
			e.warn(warn.NewAt(warn.Warning, warn.OpenPosition, symbol, lot.OpenDate,
				"open short position of "+lot.Quantity.String()+" shares at tax-year end"))
		}
	}
	for symbol, p := range e.pool.AllPools() {
		if p.PooledCostGBP.IsNegative() {
			e.warn(warn.NewAt(warn.Warning, warn.DataQuality, symbol, taxYearEnd,
				"pool cost is negative at tax-year end: "+p.PooledCostGBP.String()))
		}
	}

	report := &Report{
		TaxYear:        taxYear,
		CapitalGain:    dec.RoundHalfUp(capitalGain, 2),
		CapitalLoss:    dec.RoundHalfUp(capitalLoss, 2),
		Allowance:      allowanceFor(taxYear),
		CalculationLog: e.auditLog.All(),
		Dividends:      dividendsTotal,
		Interest:       interestTotal,
		Portfolio:      e.snapshotPortfolio(),
		Warnings:       append([]warn.W(nil), e.warnings...),
	}
	if len(eriDistTotals) > 0 {
		report.ERIDistributions = eriDistTotals
	}
	return report, nil
}

// processAcquisitionDay implements spec.md §4.8: the net-of-B&B-consumption
// flow from the acquisitions log into the pool.
func (e *Engine) processAcquisitionDay(date calendar.DayKey, symbol string, inYear bool) {
	A := e.acquisitions.Get(date, symbol)
	B := e.bnbConsumed.Get(date, symbol)
	unmatchedQty := A.Qty.Sub(B.Qty)

	if inYear && (unmatchedQty.IsPositive() || B.Qty.IsZero()) {
		preQty := e.pool.PoolQuantity(symbol)
		preCost := e.pool.PoolCost(symbol)
		e.auditLog.Append(audit.Entry{
			Date:          date,
			CategoryKey:   audit.CategoryKey("buy", symbol),
			Tag:           audit.Section104,
			Symbol:        symbol,
			Quantity:      unmatchedQty,
			GrossAmount:   A.Amount.Sub(B.Amount).Neg(),
			Fees:          A.Fees.Sub(B.Fees),
			PostPoolQty:   preQty.Add(A.Qty),
			PostPoolCost:  preCost.Add(A.Amount),
			Detail:        "acquisition net of bed-and-breakfast consumption",
		})
	}

	e.pool.AdjustPool(symbol, A.Qty, A.Amount)
}

// processERIDay implements spec.md §4.11 step 2's ERI uplift. An ERI on a
// symbol with no pool is silently skipped (spec.md §4.13).
func (e *Engine) processERIDay(date calendar.DayKey, ev corpaction.ERIEvent) {
	if !e.pool.HasPool(ev.Symbol) {
		return
	}
	poolQty := e.pool.PoolQuantity(ev.Symbol)
	uplift := poolQty.Mul(ev.AmountPerShare)
	e.pool.AdjustPool(ev.Symbol, dec.Zero, uplift)

	e.auditLog.Append(audit.Entry{
		Date:          date,
		CategoryKey:   audit.CategoryKey("eri", ev.Symbol),
		Tag:           audit.ERI,
		Symbol:        ev.Symbol,
		Quantity:      poolQty,
		AllowableCost: uplift,
		PostPoolQty:   poolQty,
		PostPoolCost:  e.pool.PoolCost(ev.Symbol),
	})
}

// processSpinoffDay implements spec.md §4.11 step 2's cost-basis transfer.
func (e *Engine) processSpinoffDay(date calendar.DayKey, ev corpaction.SpinOffEvent) {
	if !e.pool.HasPool(ev.SourceSymbol) {
		return
	}
	parentCost := e.pool.PoolCost(ev.SourceSymbol)
	transferred := dec.NormalizeAmount(ev.CostProportion.Mul(parentCost))

	// AddCostOnly, not AdjustPool: a spin-off never changes share counts, and
	// the destination position can legitimately sit at zero quantity with a
	// nonzero cost basis (spec.md §4.11 step 2), which AdjustPool's
	// zero-quantity removal rule would otherwise delete on creation.
	e.pool.AddCostOnly(ev.SourceSymbol, transferred.Neg())

	e.auditLog.Append(audit.Entry{
		Date:         date,
		CategoryKey:  audit.CategoryKey("spinoff", ev.SourceSymbol, ev.DestSymbol),
		Tag:          audit.Section104,
		Symbol:       ev.SourceSymbol,
		GrossAmount:  transferred.Neg(),
		PostPoolQty:  e.pool.PoolQuantity(ev.SourceSymbol),
		PostPoolCost: e.pool.PoolCost(ev.SourceSymbol),
		Detail:       "spin-off cost basis transferred to " + ev.DestSymbol,
	})

	e.pool.AddCostOnly(ev.DestSymbol, transferred)
	e.auditLog.Append(audit.Entry{
		Date:         date,
		CategoryKey:  audit.CategoryKey("spinoff", ev.SourceSymbol, ev.DestSymbol),
		Tag:          audit.Section104,
		Symbol:       ev.DestSymbol,
		GrossAmount:  transferred,
		PostPoolQty:  e.pool.PoolQuantity(ev.DestSymbol),
		PostPoolCost: e.pool.PoolCost(ev.DestSymbol),
		Detail:       "spin-off cost basis received from " + ev.SourceSymbol,
	})
}

// processDisposalDay applies Same-Day, Bed-&-Breakfast, and Section 104 in
// order (spec.md §4.11 step 2) and returns the signed sum of their gains
// together with any ERI distribution side effects raised by the B&B walk.
func (e *Engine) processDisposalDay(date calendar.DayKey, symbol string, taxYear int) (dec.Decimal, []rules.ERIDistribution, error) {
	disposal := e.disposals.Get(date, symbol)
	if disposal.Qty.IsZero() {
		return dec.Zero, nil, nil
	}
	basis := rules.NewBasis(disposal)
	qtyRem := disposal.Qty

	before := len(e.auditLog.All())
	var dists []rules.ERIDistribution

	qtyRem, w1 := rules.ApplySameDay(e.acquisitions, e.pool, e.auditLog, date, symbol, basis, qtyRem)
	e.warnings = append(e.warnings, w1...)

	if qtyRem.IsPositive() {
		var w2 []warn.W
		var err error
		qtyRem, dists, w2, err = rules.ApplyBedAndBreakfast(
			e.acquisitions, e.disposals, e.bnbConsumed, e.splits, e.eriStore,
			e.pool, e.auditLog, date, symbol, basis, qtyRem, taxYear)
		e.warnings = append(e.warnings, w2...)
		if err != nil {
			return dec.Zero, nil, &InvariantViolationError{Description: err.Error()}
		}
	}

	if qtyRem.IsPositive() {
		w3, err := rules.ApplySection104(e.pool, e.auditLog, date, symbol, basis, qtyRem)
		e.warnings = append(e.warnings, w3...)
		if err != nil {
			return dec.Zero, nil, &InvariantViolationError{Description: err.Error()}
		}
	}

	var total dec.Decimal
	for _, entry := range e.auditLog.All()[before:] {
		total = total.Add(entry.Gain)
	}
	return total, dists, nil
}

// processShortCoverDay implements spec.md §4.10's SHORT_COVER audit entry
// and returns its gain for the caller to fold into the tax-year totals.
func (e *Engine) processShortCoverDay(date calendar.DayKey, compositeKey string, inYear bool) dec.Decimal {
	if !inYear {
		return dec.Zero
	}
	entry := e.shortCovers.Get(date, compositeKey)
	symbol := compositeKey
	if idx := strings.LastIndex(compositeKey, "|"); idx >= 0 {
		symbol = compositeKey[:idx]
	}
	gain := entry.Amount.Sub(entry.Fees)

	e.auditLog.Append(audit.Entry{
		Date:          date,
		CategoryKey:   audit.CategoryKey("short_cover", symbol),
		Tag:           audit.ShortCover,
		Symbol:        symbol,
		Quantity:      entry.Qty,
		GrossAmount:   entry.Amount,
		Fees:          entry.Fees,
		Gain:          gain,
		AllowableCost: entry.Fees,
		PostPoolQty:   e.pool.PoolQuantity(symbol),
		PostPoolCost:  e.pool.PoolCost(symbol),
	})
	return gain
}

func (e *Engine) processDividends(ctx context.Context, taxYear int) (dec.Decimal, error) {
	type key struct{ date, symbol string }
	grouped := make(map[key]dec.Decimal)
	order := make([]key, 0)
	for _, d := range e.dividends {
		if !calendar.InTaxYear(d.Date, taxYear) {
			continue
		}
		k := key{date: d.Date.String(), symbol: d.Symbol}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		gbp, err := e.convert(ctx, d.Amount, d.Currency, d.Date)
		if err != nil {
			return dec.Zero, err
		}
		grouped[k] = grouped[k].Add(gbp)
	}

	var total dec.Decimal
	for _, k := range order {
		amount := grouped[k]
		total = total.Add(amount)
		day, _ := calendar.ParseDayKey(k.date)
		e.auditLog.Append(audit.Entry{
			Date:        day,
			CategoryKey: audit.CategoryKey("dividend", k.symbol),
			Tag:         audit.DividendTag,
			Symbol:      k.symbol,
			GrossAmount: amount,
		})
	}
	return total, nil
}

func (e *Engine) processInterest(ctx context.Context, taxYear int) (dec.Decimal, error) {
	type key struct{ broker, currency, month string }
	grouped := make(map[key]dec.Decimal)
	order := make([]key, 0)
	for _, ev := range e.interest {
		if !calendar.InTaxYear(ev.Date, taxYear) {
			continue
		}
		month := firstOfMonth(ev.Date)
		k := key{broker: ev.Broker, currency: ev.Currency, month: month.String()}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		gbp, err := e.convert(ctx, ev.Amount, ev.Currency, month)
		if err != nil {
			return dec.Zero, err
		}
		grouped[k] = grouped[k].Add(gbp)
	}

	var total dec.Decimal
	for _, k := range order {
		amount := grouped[k]
		total = total.Add(amount)
		month, _ := calendar.ParseDayKey(k.month)
		e.auditLog.Append(audit.Entry{
			Date:        month,
			CategoryKey: audit.CategoryKey("interest", k.broker, k.currency),
			Tag:         audit.InterestTag,
			GrossAmount: amount,
			Detail:      k.currency,
		})
	}
	return total, nil
}

func (e *Engine) snapshotPortfolio() Portfolio {
	pools := make(map[string]PoolSnapshot)
	for sym, p := range e.pool.AllPools() {
		pools[sym] = PoolSnapshot{Quantity: p.Quantity, PooledCostGBP: p.PooledCostGBP}
	}
	shorts := make(map[string][]ShortSnapshot)
	for sym, lots := range e.pool.AllOpenShorts() {
		snaps := make([]ShortSnapshot, len(lots))
		for i, l := range lots {
			snaps[i] = ShortSnapshot{Quantity: l.Quantity, NetProceedsGBP: l.NetProceedsGBP, OpenDate: l.OpenDate}
		}
		shorts[sym] = snaps
	}
	return Portfolio{Pools: pools, OpenShorts: shorts}
}

func groupERIByDay(events []corpaction.ERIEvent) map[string][]corpaction.ERIEvent {
	out := make(map[string][]corpaction.ERIEvent)
	for _, ev := range events {
		out[ev.Date.String()] = append(out[ev.Date.String()], ev)
	}
	return out
}

func groupSpinoffsByDay(events []corpaction.SpinOffEvent) map[string][]corpaction.SpinOffEvent {
	out := make(map[string][]corpaction.SpinOffEvent)
	for _, ev := range events {
		out[ev.Date.String()] = append(out[ev.Date.String()], ev)
	}
	return out
}

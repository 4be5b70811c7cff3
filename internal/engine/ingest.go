package engine

import (
	"context"
	"time"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/position"
)

// AddAcquisition ingests a Buy, StockActivity, or StockSplit transaction
// (spec.md §4.10). Open shorts for the symbol are covered FIFO before any
// residual quantity is logged as a normal acquisition.
func (e *Engine) AddAcquisition(ctx context.Context, tx Transaction) error {
	switch tx.Action {
	case ActionBuy, ActionStockActivity, ActionStockSplit:
	default:
		return &InvalidTransactionError{Symbol: tx.Symbol, Date: tx.Date, Message: "add_acquisition called with action " + string(tx.Action)}
	}
	if tx.Symbol == "" {
		return &MissingFieldError{Action: tx.Action, Field: "symbol"}
	}
	if tx.Quantity == nil {
		return &MissingFieldError{Action: tx.Action, Field: "quantity"}
	}
	if tx.Quantity.LessThanOrEqual(dec.Zero) {
		return &NonPositiveQuantityError{Action: tx.Action, Symbol: tx.Symbol, Quantity: *tx.Quantity}
	}

	if tx.Action == ActionStockSplit {
		return e.applyStockSplit(tx)
	}

	if tx.Action == ActionStockActivity && tx.Price == nil {
		return &MissingFieldError{Action: tx.Action, Field: "price"}
	}
	if tx.Action == ActionBuy {
		if tx.Amount == nil {
			return &MissingFieldError{Action: tx.Action, Field: "amount"}
		}
		if tx.Price == nil {
			return &MissingFieldError{Action: tx.Action, Field: "price"}
		}
		if !dec.ApproxEqualPriceRounding(*tx.Amount, *tx.Quantity, *tx.Price, tx.Fees, dec.Acquisition) {
			computed := tx.Quantity.Mul(*tx.Price)
			return &AmountPriceMismatchError{Symbol: tx.Symbol, Amount: *tx.Amount, Computed: computed}
		}
	}

	var nativeAmount dec.Decimal
	if tx.Amount != nil {
		nativeAmount = tx.Amount.Abs()
	} else {
		nativeAmount = tx.Quantity.Mul(*tx.Price)
	}

	gbpAmount, err := e.convert(ctx, nativeAmount, tx.Currency, tx.Date)
	if err != nil {
		return err
	}
	gbpFees, err := e.convert(ctx, tx.Fees, tx.Currency, tx.Date)
	if err != nil {
		return err
	}

	remainingBuyQty := *tx.Quantity
	e.touchDay(tx.Date)

	if e.pool.HasShorts(tx.Symbol) {
		for e.pool.HasShorts(tx.Symbol) && remainingBuyQty.GreaterThan(dec.Zero) {
			front := e.pool.Shorts(tx.Symbol)[0]
			coverQty := front.Quantity
			if remainingBuyQty.LessThan(coverQty) {
				coverQty = remainingBuyQty
			}

			coverCost := gbpAmount.Mul(coverQty).Div(*tx.Quantity)
			coverFees := gbpFees.Mul(coverQty).Div(*tx.Quantity)

			proceedsSlice, openDate := e.pool.CoverFront(tx.Symbol, coverQty)

			e.shortCovers.Append(tx.Date, shortCoverSymbolKey(tx.Symbol, openDate),
				coverQty, proceedsSlice, coverCost.Add(coverFees))
			markDaySymbol(e.shortCoverDays, tx.Date, shortCoverSymbolKey(tx.Symbol, openDate))

			remainingBuyQty = remainingBuyQty.Sub(coverQty)
			e.availableQty[tx.Symbol] = e.available(tx.Symbol).Add(coverQty)
		}
	}

	if remainingBuyQty.GreaterThan(dec.Zero) {
		residualAmount := gbpAmount.Mul(remainingBuyQty).Div(*tx.Quantity)
		residualFees := gbpFees.Mul(remainingBuyQty).Div(*tx.Quantity)
		e.acquisitions.Append(tx.Date, tx.Symbol, remainingBuyQty, residualAmount, residualFees)
		markDaySymbol(e.acquisitionDays, tx.Date, tx.Symbol)
		e.availableQty[tx.Symbol] = e.available(tx.Symbol).Add(remainingBuyQty)
	}

	return nil
}

// applyStockSplit records the split multiplier in the split table for the
// Bed-&-Breakfast walk (spec.md §3, §4.6) and scales the ingest-time
// availability tracker, and the pool if one already exists, by it. Open
// short lots are not rescaled.
func (e *Engine) applyStockSplit(tx Transaction) error {
	multiplier := *tx.Quantity
	e.splits.Set(tx.Symbol, tx.Date, multiplier)
	e.touchDay(tx.Date)

	if e.pool.HasPool(tx.Symbol) {
		oldQty := e.pool.PoolQuantity(tx.Symbol)
		newQty := oldQty.Mul(multiplier)
		e.pool.AdjustPool(tx.Symbol, newQty.Sub(oldQty), dec.Zero)
	}
	e.availableQty[tx.Symbol] = e.available(tx.Symbol).Mul(multiplier)
	return nil
}

// AddDisposal ingests a Sell transaction (spec.md §4.9). A disposal
// exceeding the current available quantity opens a short position for the
// surplus; this is not an error (§4.13).
func (e *Engine) AddDisposal(ctx context.Context, tx Transaction) error {
	if tx.Action != ActionSell {
		return &InvalidTransactionError{Symbol: tx.Symbol, Date: tx.Date, Message: "add_disposal called with action " + string(tx.Action)}
	}
	if tx.Symbol == "" {
		return &MissingFieldError{Action: tx.Action, Field: "symbol"}
	}
	if tx.Quantity == nil {
		return &MissingFieldError{Action: tx.Action, Field: "quantity"}
	}
	if tx.Quantity.LessThanOrEqual(dec.Zero) {
		return &NonPositiveQuantityError{Action: tx.Action, Symbol: tx.Symbol, Quantity: *tx.Quantity}
	}
	if tx.Amount == nil {
		return &MissingFieldError{Action: tx.Action, Field: "amount"}
	}
	if tx.Price == nil {
		return &MissingFieldError{Action: tx.Action, Field: "price"}
	}
	if !dec.ApproxEqualPriceRounding(*tx.Amount, *tx.Quantity, *tx.Price, tx.Fees, dec.Disposal) {
		computed := tx.Quantity.Mul(*tx.Price)
		return &AmountPriceMismatchError{Symbol: tx.Symbol, Amount: *tx.Amount, Computed: computed}
	}

	nativeAmount := tx.Amount.Abs()
	gbpAmount, err := e.convert(ctx, nativeAmount, tx.Currency, tx.Date)
	if err != nil {
		return err
	}
	gbpFees, err := e.convert(ctx, tx.Fees, tx.Currency, tx.Date)
	if err != nil {
		return err
	}

	e.touchDay(tx.Date)

	qty := *tx.Quantity
	actual := e.available(tx.Symbol)
	regularCapacity := actual
	if regularCapacity.LessThan(dec.Zero) {
		regularCapacity = dec.Zero
	}

	if qty.GreaterThan(regularCapacity) {
		regularQty := regularCapacity
		shortQty := qty.Sub(regularCapacity)

		if regularQty.GreaterThan(dec.Zero) {
			gbpAmountSlice := gbpAmount.Mul(regularQty).Div(qty)
			gbpFeesSlice := gbpFees.Mul(regularQty).Div(qty)
			e.disposals.Append(tx.Date, tx.Symbol, regularQty, gbpAmountSlice, gbpFeesSlice)
			markDaySymbol(e.disposalDays, tx.Date, tx.Symbol)
		}

		shortAmountSlice := gbpAmount.Mul(shortQty).Div(qty)
		shortFeesSlice := gbpFees.Mul(shortQty).Div(qty)
		e.pool.OpenShort(tx.Symbol, position.ShortLot{
			Quantity:       shortQty,
			NetProceedsGBP: shortAmountSlice.Sub(shortFeesSlice),
			OpenDate:       tx.Date,
			SellFeesGBP:    shortFeesSlice,
		})
	} else {
		e.disposals.Append(tx.Date, tx.Symbol, qty, gbpAmount, gbpFees)
		markDaySymbol(e.disposalDays, tx.Date, tx.Symbol)
	}

	e.availableQty[tx.Symbol] = actual.Sub(qty)

	return nil
}

// AddDividend records a dividend event, summed per (symbol, date) and
// converted to GBP during the day-driver's post-processing step
// (spec.md §4.11 step 3).
func (e *Engine) AddDividend(ev DividendEvent) {
	e.dividends = append(e.dividends, ev)
	e.touchDay(ev.Date)
}

// AddInterest records an interest event, grouped by (broker, currency,
// month) and converted at first-of-month during post-processing
// (spec.md §4.11 step 3).
func (e *Engine) AddInterest(ev InterestEvent) {
	e.interest = append(e.interest, ev)
}

// firstOfMonth returns the day key for the first day of date's month, used
// as the conversion date for grouped interest (spec.md §4.11 step 3).
func firstOfMonth(date calendar.DayKey) calendar.DayKey {
	t := date.Time()
	return calendar.NewDayKey(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC))
}

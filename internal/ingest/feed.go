package ingest

import (
	"context"
	"fmt"
	"strings"

	"cgtengine/internal/corpaction"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/engine"
)

// Drive consumes every row adapter produces and dispatches it to the
// matching engine method, in the order delivered (spec.md §4.15's "small
// driver... consumed by a small driver"). All add_* calls happen from this
// single goroutine, sequentially, per the engine's single-threaded
// contract (spec.md §5).
//
// Row-level errors collected on the adapter's error channel are returned
// as non-fatal RowErrors in the first return slice; a fatal error from the
// engine itself (a MissingFieldError, AmountPriceMismatchError, ...) stops
// the drive and is returned as the second value.
func Drive(ctx context.Context, a Adapter, e *engine.Engine) ([]error, error) {
	rows, errs := a.Transactions(ctx)
	var rowErrors []error

	for rows != nil || errs != nil {
		select {
		case row, ok := <-rows:
			if !ok {
				rows = nil
				continue
			}
			if err := dispatch(ctx, e, row); err != nil {
				return rowErrors, fmt.Errorf("ingest: row %d (%s %s): %w", row.SourceLine, row.Action, row.Symbol, err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			rowErrors = append(rowErrors, err)
		}
	}

	return rowErrors, nil
}

func dispatch(ctx context.Context, e *engine.Engine, row Row) error {
	tx := engine.Transaction{
		Date: row.Date, Action: row.Action, Symbol: row.Symbol,
		Quantity: row.Quantity, Price: row.Price, Amount: row.Amount,
		Fees: row.Fees, Currency: row.Currency, Broker: row.Broker,
		ISIN: row.ISIN, Description: row.Description,
	}

	switch row.Action {
	case engine.ActionBuy, engine.ActionStockActivity, engine.ActionStockSplit:
		return e.AddAcquisition(ctx, tx)
	case engine.ActionSell:
		return e.AddDisposal(ctx, tx)
	case engine.ActionDividend:
		if row.Amount == nil {
			return &engine.MissingFieldError{Action: row.Action, Field: "amount"}
		}
		e.AddDividend(engine.DividendEvent{Date: row.Date, Symbol: row.Symbol, Amount: *row.Amount, Currency: row.Currency})
		return nil
	case engine.ActionInterest:
		if row.Amount == nil {
			return &engine.MissingFieldError{Action: row.Action, Field: "amount"}
		}
		e.AddInterest(engine.InterestEvent{Date: row.Date, Broker: row.Broker, Currency: row.Currency, Amount: *row.Amount})
		return nil
	case engine.ActionExcessReportedIncome:
		return e.AddERI(tx)
	case engine.ActionSpinOff:
		return e.AddSpinoff(spinoffFromRow(row))
	default:
		// DividendTax, Fee, Transfer, CashMerger, FullRedemption,
		// Adjustment, CapitalGain, ReinvestShares, ReinvestDividends,
		// WireFundsReceived: cash-movement and bookkeeping actions the CGT
		// engine's matching rules do not consume (spec.md §3 lists them as
		// part of the action vocabulary an adapter must recognize, not as
		// inputs to add_acquisition/add_disposal/add_dividend/add_interest).
		return nil
	}
}

// spinoffFromRow expects the CSV Notes/Description field to encode the
// destination symbol and cost proportion as "DEST:0.2" (the adapter layer
// is a minimal, non-hardened stand-in per SPEC_FULL.md §4.15/§1 Non-goals,
// not a full corporate-actions feed parser).
func spinoffFromRow(row Row) corpaction.SpinOffEvent {
	dest, proportion := parseSpinoffNotes(row.Description)
	return corpaction.SpinOffEvent{
		Date: row.Date, SourceSymbol: row.Symbol, DestSymbol: dest, CostProportion: proportion,
	}
}

func parseSpinoffNotes(notes string) (dest string, proportion dec.Decimal) {
	parts := strings.SplitN(strings.TrimSpace(notes), ":", 2)
	if len(parts) != 2 {
		return "", dec.Zero
	}
	p, err := dec.New(strings.TrimSpace(parts[1]))
	if err != nil {
		return strings.TrimSpace(parts[0]), dec.Zero
	}
	return strings.TrimSpace(parts[0]), p
}

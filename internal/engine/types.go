// Package engine implements the day-indexed calculation driver: it orders
// acquisitions, ERI uplifts, spin-offs, disposals and short-covers within
// each day, accumulates gains and losses restricted to the target tax
// year, and produces the calculation log and warnings (spec.md §4.9–§4.13).
package engine

import (
	"cgtengine/internal/allowance"
	"cgtengine/internal/audit"
	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/warn"
)

// Action is the tagged-variant replacement for the source's free-form
// action string (spec.md §9 "Dynamic action dispatch"): the rest of the
// engine dispatches on this type and never string-compares an action.
type Action string

const (
	ActionBuy                   Action = "Buy"
	ActionSell                  Action = "Sell"
	ActionStockActivity         Action = "StockActivity"
	ActionStockSplit            Action = "StockSplit"
	ActionDividend              Action = "Dividend"
	ActionDividendTax           Action = "DividendTax"
	ActionInterest              Action = "Interest"
	ActionFee                   Action = "Fee"
	ActionTransfer              Action = "Transfer"
	ActionSpinOff               Action = "SpinOff"
	ActionExcessReportedIncome  Action = "ExcessReportedIncome"
	ActionCashMerger            Action = "CashMerger"
	ActionFullRedemption        Action = "FullRedemption"
	ActionAdjustment            Action = "Adjustment"
	ActionCapitalGain           Action = "CapitalGain"
	ActionReinvestShares        Action = "ReinvestShares"
	ActionReinvestDividends     Action = "ReinvestDividends"
	ActionWireFundsReceived     Action = "WireFundsReceived"
)

// Transaction is the immutable, broker-native input record spec.md §3
// defines. Quantity, Price and Amount are nullable per the source contract;
// Fees and Currency are always present.
type Transaction struct {
	Date        calendar.DayKey
	Action      Action
	Symbol      string
	Quantity    *dec.Decimal
	Price       *dec.Decimal
	Amount      *dec.Decimal
	Fees        dec.Decimal
	Currency    string
	Broker      string
	ISIN        string
	Description string
}

// DividendEvent and InterestEvent are the inputs for §4.11 step 3. Callers
// may submit raw rows directly: Calculate sums them per (symbol, date) and
// per (broker, currency, month) respectively.
type DividendEvent struct {
	Date     calendar.DayKey
	Symbol   string
	Amount   dec.Decimal
	Currency string
}

type InterestEvent struct {
	Date     calendar.DayKey
	Broker   string
	Currency string
	Amount   dec.Decimal
}

// Report is the pure, read-only output of a single calculate() call
// (spec.md §4.11 step 5, §6 "Persisted state: None").
type Report struct {
	TaxYear           int
	CapitalGain       dec.Decimal
	CapitalLoss       dec.Decimal
	Allowance         int64
	CalculationLog    []audit.Entry
	Dividends         dec.Decimal
	Interest          dec.Decimal
	Portfolio         Portfolio
	Warnings          []warn.W
	ERIDistributions  map[string]dec.Decimal // keyed "eri$<date>$<symbol>" (spec.md §9 open question, resolved to surface)
}

// Portfolio is the closing snapshot returned alongside the Report.
type Portfolio struct {
	Pools       map[string]PoolSnapshot
	OpenShorts  map[string][]ShortSnapshot
}

type PoolSnapshot struct {
	Quantity     dec.Decimal
	PooledCostGBP dec.Decimal
}

type ShortSnapshot struct {
	Quantity       dec.Decimal
	NetProceedsGBP dec.Decimal
	OpenDate       calendar.DayKey
}

// allowanceFor looks up taxYear in allowance.Default, returning zero if the
// year is not tabulated; a missing year is a data-quality gap, not a fatal
// condition (spec.md §6 treats the table as read-only, best-effort).
func allowanceFor(taxYear int) int64 {
	v, _ := allowance.Default.Lookup(taxYear)
	return v
}

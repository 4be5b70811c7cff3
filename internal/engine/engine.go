package engine

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"cgtengine/internal/audit"
	"cgtengine/internal/calendar"
	"cgtengine/internal/corpaction"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/fx"
	"cgtengine/internal/position"
	"cgtengine/internal/txlog"
	"cgtengine/internal/warn"
)

// Engine accumulates one tax computation's worth of ingested transactions
// and produces a Report from Calculate. An Engine is single-use: spec.md §5
// requires a fresh instance per computation, its state discarded on any
// fatal error.
type Engine struct {
	oracle fx.Oracle
	log    *zap.Logger

	pool *position.Store

	// availableQty tracks the net long quantity implied by the ingestion
	// stream processed so far, per symbol. It is consulted by add_disposal
	// to split a disposal into its regular and short-opening portions
	// (spec.md §4.9 step 3) before the day-driver has run and mutated the
	// Section 104 pool itself; the pool's own quantity/cost are touched
	// only during Calculate's day walk (§4.5–§4.8), never at ingest.
	availableQty map[string]dec.Decimal

	acquisitions *txlog.Log
	disposals    *txlog.Log
	bnbConsumed  *txlog.Log
	shortCovers  *txlog.Log // keyed by (date, symbol+"|"+openDate) per §4.10

	eriStore *corpaction.ERIStore
	splits   *corpaction.SplitTable
	spinoffs []corpaction.SpinOffEvent

	dividends []DividendEvent
	interest  []InterestEvent

	activeDays map[string]calendar.DayKey

	// The following index which symbols touched each day, so Calculate can
	// walk only active days instead of every calendar day since the epoch
	// (spec.md §5 "day-driver cost is bounded by days_since_epoch ×
	// symbols_touched_per_day" — the index makes the per-day cost exact).
	acquisitionDays map[string]map[string]struct{}
	disposalDays    map[string]map[string]struct{}
	shortCoverDays  map[string]map[string]struct{}

	auditLog *audit.Log
	warnings []warn.W
}

// New constructs an empty Engine backed by oracle for currency conversion.
// A nil logger is replaced with zap.NewNop().
func New(oracle fx.Oracle, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		oracle:       oracle,
		log:          log,
		pool:         position.New(),
		availableQty: make(map[string]dec.Decimal),
		acquisitions: txlog.New(),
		disposals:    txlog.New(),
		bnbConsumed:  txlog.New(),
		shortCovers:  txlog.New(),
		eriStore:     corpaction.NewERIStore(),
		splits:       corpaction.NewSplitTable(),
		activeDays:   make(map[string]calendar.DayKey),
		acquisitionDays: make(map[string]map[string]struct{}),
		disposalDays:    make(map[string]map[string]struct{}),
		shortCoverDays:  make(map[string]map[string]struct{}),
		auditLog:     audit.New(),
	}
}

func shortCoverSymbolKey(symbol string, openDate calendar.DayKey) string {
	return symbol + "|" + openDate.String()
}

func (e *Engine) touchDay(d calendar.DayKey) {
	e.activeDays[d.String()] = d
}

func markDaySymbol(index map[string]map[string]struct{}, date calendar.DayKey, symbol string) {
	k := date.String()
	set, ok := index[k]
	if !ok {
		set = make(map[string]struct{})
		index[k] = set
	}
	set[symbol] = struct{}{}
}

func symbolsOnDay(index map[string]map[string]struct{}, date calendar.DayKey) []string {
	set := index[date.String()]
	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) sortedActiveDays() []calendar.DayKey {
	days := make([]calendar.DayKey, 0, len(e.activeDays))
	for _, d := range e.activeDays {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func (e *Engine) warn(w warn.W) {
	e.warnings = append(e.warnings, w)
}

func (e *Engine) available(symbol string) dec.Decimal {
	if v, ok := e.availableQty[symbol]; ok {
		return v
	}
	return dec.Zero
}

func (e *Engine) convert(ctx context.Context, amount dec.Decimal, currency string, date calendar.DayKey) (dec.Decimal, error) {
	return fx.Convert(ctx, e.oracle, amount, currency, date)
}

// AddERI records an excess-reported-income uplift for (tx.Date, tx.Symbol).
// It is applied to the pool during the day-driver's visit (spec.md §4.11
// step 2); ERI on a symbol with no position at that time is silently
// skipped there, per §4.13.
func (e *Engine) AddERI(tx Transaction) error {
	if tx.Symbol == "" {
		return &MissingFieldError{Action: ActionExcessReportedIncome, Field: "symbol"}
	}
	if tx.Amount == nil {
		return &InvalidTransactionError{Symbol: tx.Symbol, Date: tx.Date, Message: "ERI event missing amount_per_share"}
	}
	e.eriStore.Add(corpaction.ERIEvent{Date: tx.Date, Symbol: tx.Symbol, AmountPerShare: *tx.Amount})
	e.touchDay(tx.Date)
	return nil
}

// AddSpinoff records a spin-off event, applied during the day-driver's
// visit (spec.md §4.11 step 2).
func (e *Engine) AddSpinoff(ev corpaction.SpinOffEvent) error {
	if err := ev.Validate(); err != nil {
		return &InvalidTransactionError{Symbol: ev.SourceSymbol, Date: ev.Date, Message: err.Error()}
	}
	e.spinoffs = append(e.spinoffs, ev)
	e.touchDay(ev.Date)
	return nil
}

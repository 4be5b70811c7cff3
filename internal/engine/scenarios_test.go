package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgtengine/internal/calendar"
	"cgtengine/internal/corpaction"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/warn"
)

func mustDec(t *testing.T, s string) dec.Decimal {
	t.Helper()
	v, err := dec.New(s)
	require.NoError(t, err)
	return v
}

func mustDay(t *testing.T, s string) calendar.DayKey {
	t.Helper()
	v, err := calendar.ParseDayKey(s)
	require.NoError(t, err)
	return v
}

func ptr(d dec.Decimal) *dec.Decimal { return &d }

func newGBPEngine() *Engine {
	return New(nil, nil)
}

func buy(t *testing.T, e *Engine, date, symbol, qty, price, fees string) {
	t.Helper()
	err := e.AddAcquisition(context.Background(), Transaction{
		Date: mustDay(t, date), Action: ActionBuy, Symbol: symbol,
		Quantity: ptr(mustDec(t, qty)), Price: ptr(mustDec(t, price)),
		Amount: ptr(mustDec(t, "-" + mulStr(t, qty, price))), Fees: mustDec(t, fees), Currency: "GBP",
	})
	require.NoError(t, err)
}

func sell(t *testing.T, e *Engine, date, symbol, qty, price, fees string) {
	t.Helper()
	err := e.AddDisposal(context.Background(), Transaction{
		Date: mustDay(t, date), Action: ActionSell, Symbol: symbol,
		Quantity: ptr(mustDec(t, qty)), Price: ptr(mustDec(t, price)),
		Amount: ptr(mustDec(t, mulStr(t, qty, price))), Fees: mustDec(t, fees), Currency: "GBP",
	})
	require.NoError(t, err)
}

func mulStr(t *testing.T, a, b string) string {
	t.Helper()
	return mustDec(t, a).Mul(mustDec(t, b)).String()
}

// Same-day gain with fees (spec.md §8): Buy 100 @ £150 fee £10; sell 100 @
// £160 fee £12; same day. Expected capital_gain = 978.00, pool empty.
func TestScenario_SameDayGainWithFees(t *testing.T) {
	e := newGBPEngine()
	buy(t, e, "2023-05-01", "AAPL", "100", "150", "10")
	sell(t, e, "2023-05-01", "AAPL", "100", "160", "12")

	report, err := e.Calculate(context.Background(), 2023)
	require.NoError(t, err)
	assert.True(t, report.CapitalGain.Equal(mustDec(t, "978")), "gain: %s", report.CapitalGain)
	assert.Empty(t, report.Portfolio.Pools)
}

// B&B 30-day boundary: pool-build 100 @ £100 on 1 May; sell 100 @ £150 on 5
// May; buy 100 @ £145 on 4 Jun (D+30). Expected B&B applies, gain = 500.00.
func TestScenario_BnB30DayBoundary(t *testing.T) {
	e := newGBPEngine()
	buy(t, e, "2023-05-01", "AAPL", "100", "100", "0")
	sell(t, e, "2023-05-05", "AAPL", "100", "150", "0")
	buy(t, e, "2023-06-04", "AAPL", "100", "145", "0")

	report, err := e.Calculate(context.Background(), 2023)
	require.NoError(t, err)
	assert.True(t, report.CapitalGain.Equal(mustDec(t, "500")), "gain: %s", report.CapitalGain)
}

// B&B just outside window: same as above but buy on 5 Jun (D+31). Section
// 104 applies instead; gain = 5000.00.
func TestScenario_BnBJustOutsideWindow(t *testing.T) {
	e := newGBPEngine()
	buy(t, e, "2023-05-01", "AAPL", "100", "100", "0")
	sell(t, e, "2023-05-05", "AAPL", "100", "150", "0")
	buy(t, e, "2023-06-05", "AAPL", "100", "145", "0")

	report, err := e.Calculate(context.Background(), 2023)
	require.NoError(t, err)
	assert.True(t, report.CapitalGain.Equal(mustDec(t, "5000")), "gain: %s", report.CapitalGain)
}

// Section 104 averaging: Buy 100 @ £150 and 100 @ £130; sell 100 @ £120.
// Expected capital_loss = -2000.00, pool quantity 100, pool cost 14000.
func TestScenario_Section104Averaging(t *testing.T) {
	e := newGBPEngine()
	buy(t, e, "2023-01-10", "AAPL", "100", "150", "0")
	buy(t, e, "2023-01-11", "AAPL", "100", "130", "0")
	sell(t, e, "2023-06-01", "AAPL", "100", "120", "0")

	report, err := e.Calculate(context.Background(), 2023)
	require.NoError(t, err)
	assert.True(t, report.CapitalLoss.Equal(mustDec(t, "-2000")), "loss: %s", report.CapitalLoss)
	pool := report.Portfolio.Pools["AAPL"]
	assert.True(t, pool.Quantity.Equal(mustDec(t, "100")))
	assert.True(t, pool.PooledCostGBP.Equal(mustDec(t, "14000")))
}

// Naked short then cover at loss: Sell 100 @ £150; buy 100 @ £180; no prior
// pool. Expected capital_loss = -3000.00, flat.
func TestScenario_NakedShortThenCoverAtLoss(t *testing.T) {
	e := newGBPEngine()
	sell(t, e, "2023-02-01", "AAPL", "100", "150", "0")
	buy(t, e, "2023-02-10", "AAPL", "100", "180", "0")

	report, err := e.Calculate(context.Background(), 2022)
	require.NoError(t, err)
	assert.True(t, report.CapitalLoss.Equal(mustDec(t, "-3000")), "loss: %s", report.CapitalLoss)
	assert.Empty(t, report.Portfolio.Pools)
	assert.Empty(t, report.Portfolio.OpenShorts)
}

// ERI uplift then disposal: Buy 100 VUAG @ £100; ERI £5/share; sell 100 @
// £110. Expected capital_gain = 500.00.
func TestScenario_ERIUpliftThenDisposal(t *testing.T) {
	e := newGBPEngine()
	buy(t, e, "2023-01-05", "VUAG", "100", "100", "0")
	err := e.AddERI(Transaction{Date: mustDay(t, "2023-01-20"), Action: ActionExcessReportedIncome, Symbol: "VUAG", Amount: ptr(mustDec(t, "5"))})
	require.NoError(t, err)
	sell(t, e, "2023-06-01", "VUAG", "100", "110", "0")

	report, err := e.Calculate(context.Background(), 2023)
	require.NoError(t, err)
	assert.True(t, report.CapitalGain.Equal(mustDec(t, "500")), "gain: %s", report.CapitalGain)
}

// Mixed precedence: pool 100 @ £90; sell 100 @ £150; same-day buy 40 @ £100;
// B&B buy 30 @ £110 on D+10. Expected capital_gain = 5000.00 (2000 + 1200 + 1800).
func TestScenario_MixedPrecedence(t *testing.T) {
	e := newGBPEngine()
	buy(t, e, "2023-01-01", "AAPL", "100", "90", "0")
	sell(t, e, "2023-03-01", "AAPL", "100", "150", "0")
	buy(t, e, "2023-03-01", "AAPL", "40", "100", "0")
	buy(t, e, "2023-03-11", "AAPL", "30", "110", "0")

	report, err := e.Calculate(context.Background(), 2022)
	require.NoError(t, err)
	assert.True(t, report.CapitalGain.Equal(mustDec(t, "5000")), "gain: %s", report.CapitalGain)
}

// Leap-day B&B: pool 100 @ £100; sell 100 @ £150 on 29 Feb (leap year); buy
// 100 @ £145 on 31 Mar same year (D+31). Section 104 applies; gain = 5000.00.
func TestScenario_LeapDayBnB(t *testing.T) {
	e := newGBPEngine()
	buy(t, e, "2023-12-01", "AAPL", "100", "100", "0")
	sell(t, e, "2024-02-29", "AAPL", "100", "150", "0")
	buy(t, e, "2024-03-31", "AAPL", "100", "145", "0")

	report, err := e.Calculate(context.Background(), 2023)
	require.NoError(t, err)
	assert.True(t, report.CapitalGain.Equal(mustDec(t, "5000")), "gain: %s", report.CapitalGain)
}

// Open short at year-end: Sell 50 @ £150 on 1 Mar; no cover by 5 Apr.
// Expected capital_gain = 0, one OpenPosition warning for 50 shares.
func TestScenario_OpenShortAtYearEnd(t *testing.T) {
	e := newGBPEngine()
	sell(t, e, "2024-03-01", "AAPL", "50", "150", "0")

	report, err := e.Calculate(context.Background(), 2023)
	require.NoError(t, err)
	assert.True(t, report.CapitalGain.IsZero())
	require.Len(t, report.Portfolio.OpenShorts["AAPL"], 1)

	found := false
	for _, w := range report.Warnings {
		if w.Category == warn.OpenPosition {
			found = true
		}
	}
	assert.True(t, found, "expected an OpenPosition warning")
}

// AddSpinoff transfers a proportion of cost basis to a new symbol.
func TestSpinoff_TransfersCostBasis(t *testing.T) {
	e := newGBPEngine()
	buy(t, e, "2023-01-01", "MMM", "100", "100", "0")
	err := e.AddSpinoff(corpaction.SpinOffEvent{
		Date: mustDay(t, "2023-02-01"), SourceSymbol: "MMM", DestSymbol: "SOLV",
		CostProportion: mustDec(t, "0.2"),
	})
	require.NoError(t, err)

	report, err := e.Calculate(context.Background(), 2022)
	require.NoError(t, err)
	parent := report.Portfolio.Pools["MMM"]
	dest := report.Portfolio.Pools["SOLV"]
	assert.True(t, parent.PooledCostGBP.Equal(mustDec(t, "8000")), "parent cost: %s", parent.PooledCostGBP)
	assert.True(t, dest.PooledCostGBP.Equal(mustDec(t, "2000")), "dest cost: %s", dest.PooledCostGBP)
}

package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/engine"
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

func newReportFixture(t *testing.T) *engine.Report {
	t.Helper()
	e := engine.New(nil, nil)
	require.NoError(t, e.AddAcquisition(context.Background(), engine.Transaction{
		Date: mustDay(t, "2023-05-01"), Action: engine.ActionBuy, Symbol: "AAPL",
		Quantity: ptr(mustDec(t, "100")), Price: ptr(mustDec(t, "150")),
		Amount: ptr(mustDec(t, "-15000")), Fees: mustDec(t, "10"), Currency: "GBP",
	}))
	require.NoError(t, e.AddDisposal(context.Background(), engine.Transaction{
		Date: mustDay(t, "2023-05-01"), Action: engine.ActionSell, Symbol: "AAPL",
		Quantity: ptr(mustDec(t, "100")), Price: ptr(mustDec(t, "160")),
		Amount: ptr(mustDec(t, "16000")), Fees: mustDec(t, "12"), Currency: "GBP",
	}))
	rep, err := e.Calculate(context.Background(), 2023)
	require.NoError(t, err)
	return rep
}

func TestFlattenDisposals(t *testing.T) {
	rep := newReportFixture(t)
	lines := FlattenDisposals(rep.CalculationLog)
	require.Len(t, lines, 1)
	assert.Equal(t, "AAPL", lines[0].Symbol)
	assert.True(t, lines[0].Quantity.Equal(mustDec(t, "100")))
	assert.True(t, lines[0].Gain.Equal(mustDec(t, "978")))
}

func TestApplyAllowance(t *testing.T) {
	rep := newReportFixture(t)
	result := ApplyAllowance(rep, DefaultTable())
	assert.Equal(t, 2023, result.TaxYear)
	assert.True(t, result.NetGain.Equal(mustDec(t, "978")))
	assert.EqualValues(t, 6000, result.Allowance)
	assert.True(t, result.TaxableGain.IsZero(), "gain below allowance should be floored at zero")
}

func TestApplyAllowance_ExceedsAllowance(t *testing.T) {
	table := WithAllowance(DefaultTable(), 2023, 500)
	rep := newReportFixture(t)
	result := ApplyAllowance(rep, table)
	assert.True(t, result.TaxableGain.Equal(mustDec(t, "478")))
}

func TestRenderCSV(t *testing.T) {
	rep := newReportFixture(t)
	out, err := RenderCSV(rep)
	require.NoError(t, err)
	assert.Contains(t, string(out), "date,symbol,rule,quantity,proceeds_gbp,allowable_cost_gbp,gain_gbp")
	assert.Contains(t, string(out), "AAPL")
}

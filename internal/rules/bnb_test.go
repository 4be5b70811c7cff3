package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgtengine/internal/audit"
	"cgtengine/internal/corpaction"
	"cgtengine/internal/position"
	"cgtengine/internal/txlog"
)

// Bed-&-Breakfast: sell 50 on day D, buy 50 three days later. Expected the
// full 50 matches against the D+3 acquisition (spec.md §4.6, §8).
func TestApplyBedAndBreakfast_MatchesForwardAcquisition(t *testing.T) {
	acq := txlog.New()
	disp := txlog.New()
	bnbConsumed := txlog.New()
	pool := position.New()
	auditLog := audit.New()
	splits := corpaction.NewSplitTable()
	eris := corpaction.NewERIStore()

	sellDate := day(t, "2023-05-01")
	buyDate := day(t, "2023-05-04")
	pool.AdjustPool("AAPL", d(t, "100"), d(t, "15000")) // pre-existing Section 104 holding the sell draws down
	acq.Append(buyDate, "AAPL", d(t, "50"), d(t, "7500"), d(t, "0"))

	basis := Basis{FeesOrigQty: d(t, "50"), FeesOrigTotal: d(t, "0"), Price: d(t, "160")}
	remaining, dists, warnings, err := ApplyBedAndBreakfast(
		acq, disp, bnbConsumed, splits, eris, pool, auditLog,
		sellDate, "AAPL", basis, d(t, "50"), 2023)

	require.NoError(t, err)
	assert.True(t, remaining.IsZero())
	assert.Empty(t, dists)
	assert.Empty(t, warnings)

	entries := auditLog.All()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.BedAndBreakfast, entries[0].Tag)
	assert.True(t, entries[0].Gain.Equal(d(t, "500")), "gain: %s", entries[0].Gain)
	assert.True(t, pool.PoolQuantity("AAPL").Equal(d(t, "50")))
	assert.True(t, pool.PoolCost("AAPL").Equal(d(t, "7500")))
}

// bnb_consumed already recording more than the acquisition day's quantity is
// a programming-error invariant violation (spec.md §4.6 step 4, §7), not a
// recoverable data-quality condition, matching ApplySection104's analogous
// pool-overrun check.
func TestApplyBedAndBreakfast_ConsumedExceedsAcquiredIsInvariantViolation(t *testing.T) {
	acq := txlog.New()
	disp := txlog.New()
	bnbConsumed := txlog.New()
	pool := position.New()
	auditLog := audit.New()
	splits := corpaction.NewSplitTable()
	eris := corpaction.NewERIStore()

	sellDate := day(t, "2023-05-01")
	buyDate := day(t, "2023-05-04")
	acq.Append(buyDate, "AAPL", d(t, "50"), d(t, "7500"), d(t, "0"))
	bnbConsumed.Append(buyDate, "AAPL", d(t, "60"), d(t, "0"), d(t, "0"))

	basis := Basis{FeesOrigQty: d(t, "50"), FeesOrigTotal: d(t, "0"), Price: d(t, "160")}
	_, _, _, err := ApplyBedAndBreakfast(
		acq, disp, bnbConsumed, splits, eris, pool, auditLog,
		sellDate, "AAPL", basis, d(t, "50"), 2023)

	require.Error(t, err)
	var iv *InvariantViolationError
	assert.ErrorAs(t, err, &iv)
}

// Nothing acquired within the window: the disposal's residual quantity
// passes through untouched for Section 104 to handle.
func TestApplyBedAndBreakfast_NoWindowAcquisitionPassesThrough(t *testing.T) {
	acq := txlog.New()
	disp := txlog.New()
	bnbConsumed := txlog.New()
	pool := position.New()
	auditLog := audit.New()
	splits := corpaction.NewSplitTable()
	eris := corpaction.NewERIStore()

	sellDate := day(t, "2023-05-01")
	basis := Basis{FeesOrigQty: d(t, "50"), FeesOrigTotal: d(t, "0"), Price: d(t, "160")}
	remaining, dists, warnings, err := ApplyBedAndBreakfast(
		acq, disp, bnbConsumed, splits, eris, pool, auditLog,
		sellDate, "AAPL", basis, d(t, "50"), 2023)

	require.NoError(t, err)
	assert.True(t, remaining.Equal(d(t, "50")))
	assert.Empty(t, dists)
	assert.Empty(t, warnings)
	assert.Empty(t, auditLog.All())
}

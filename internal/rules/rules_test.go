package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgtengine/internal/audit"
	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/position"
	"cgtengine/internal/txlog"
)

func d(t *testing.T, s string) dec.Decimal {
	t.Helper()
	v, err := dec.New(s)
	require.NoError(t, err)
	return v
}

func day(t *testing.T, s string) calendar.DayKey {
	t.Helper()
	v, err := calendar.ParseDayKey(s)
	require.NoError(t, err)
	return v
}

// Same-day gain with fees: Buy 100 @ £150, fee £10; sell 100 @ £160, fee
// £12; same day. Expected capital_gain = 978.00 (spec.md §8).
func TestApplySameDay_GainWithFees(t *testing.T) {
	acq := txlog.New()
	pool := position.New()
	auditLog := audit.New()
	date := day(t, "2023-05-01")

	acq.Append(date, "AAPL", d(t, "100"), d(t, "15000"), d(t, "10"))
	pool.AdjustPool("AAPL", d(t, "100"), d(t, "15000"))

	basis := Basis{FeesOrigQty: d(t, "100"), FeesOrigTotal: d(t, "12"), Price: d(t, "160")}
	remaining, warnings := ApplySameDay(acq, pool, auditLog, date, "AAPL", basis, d(t, "100"))

	assert.True(t, remaining.IsZero())
	assert.Empty(t, warnings)

	entries := auditLog.All()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.SameDay, entries[0].Tag)
	assert.True(t, entries[0].Gain.Equal(d(t, "978")), "gain: %s", entries[0].Gain)
	assert.False(t, pool.HasPool("AAPL"))
}

// Section 104 averaging: Buy 100 @ £150 and 100 @ £130; sell 100 @ £120.
// Expected capital_loss = -2000.00, pool quantity 100, pool cost 14000.
func TestApplySection104_Averaging(t *testing.T) {
	pool := position.New()
	auditLog := audit.New()
	date := day(t, "2023-06-01")

	pool.AdjustPool("AAPL", d(t, "100"), d(t, "15000"))
	pool.AdjustPool("AAPL", d(t, "100"), d(t, "13000"))

	basis := Basis{FeesOrigQty: d(t, "100"), FeesOrigTotal: d(t, "0"), Price: d(t, "120")}
	warnings, err := ApplySection104(pool, auditLog, date, "AAPL", basis, d(t, "100"))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	entries := auditLog.All()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Gain.Equal(d(t, "-2000")), "gain: %s", entries[0].Gain)
	assert.True(t, pool.PoolQuantity("AAPL").Equal(d(t, "100")))
	assert.True(t, pool.PoolCost("AAPL").Equal(d(t, "14000")))
}

func TestApplySection104_ExceedsPoolIsInvariantViolation(t *testing.T) {
	pool := position.New()
	auditLog := audit.New()
	date := day(t, "2023-06-01")
	pool.AdjustPool("AAPL", d(t, "10"), d(t, "1000"))

	basis := Basis{FeesOrigQty: d(t, "20"), FeesOrigTotal: d(t, "0"), Price: d(t, "100")}
	_, err := ApplySection104(pool, auditLog, date, "AAPL", basis, d(t, "20"))
	require.Error(t, err)
	var iv *InvariantViolationError
	assert.ErrorAs(t, err, &iv)
}

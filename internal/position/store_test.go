package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

func d(t *testing.T, s string) dec.Decimal {
	t.Helper()
	v, err := dec.New(s)
	require.NoError(t, err)
	return v
}

func TestAdjustPool_RemovesOnZero(t *testing.T) {
	s := New()
	s.AdjustPool("AAPL", d(t, "100"), d(t, "1000"))
	assert.True(t, s.HasPool("AAPL"))
	assert.True(t, s.PoolQuantity("AAPL").Equal(d(t, "100")))

	s.AdjustPool("AAPL", d(t, "-100"), d(t, "-1000"))
	assert.False(t, s.HasPool("AAPL"))
	assert.True(t, s.PoolQuantity("AAPL").IsZero())
}

func TestShortFIFO_CoverFrontOldestFirst(t *testing.T) {
	s := New()
	day1, _ := calendar.ParseDayKey("2023-01-01")
	day2, _ := calendar.ParseDayKey("2023-02-01")

	s.OpenShort("TSLA", ShortLot{Quantity: d(t, "10"), NetProceedsGBP: d(t, "1000"), OpenDate: day1})
	s.OpenShort("TSLA", ShortLot{Quantity: d(t, "5"), NetProceedsGBP: d(t, "600"), OpenDate: day2})

	proceeds, open := s.CoverFront("TSLA", d(t, "4"))
	assert.True(t, proceeds.Equal(d(t, "400")))
	assert.Equal(t, day1.String(), open.String())

	queue := s.Shorts("TSLA")
	require.Len(t, queue, 2)
	assert.True(t, queue[0].Quantity.Equal(d(t, "6")))

	// Fully cover the remainder of the first lot; it should be removed.
	s.CoverFront("TSLA", d(t, "6"))
	queue = s.Shorts("TSLA")
	require.Len(t, queue, 1)
	assert.Equal(t, day2.String(), queue[0].OpenDate.String())
}

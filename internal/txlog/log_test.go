package txlog

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

func day(t *testing.T, s string) calendar.DayKey {
	t.Helper()
	v, err := calendar.ParseDayKey(s)
	require.NoError(t, err)
	return v
}

func TestAppend_Additive(t *testing.T) {
	l := New()
	date := day(t, "2023-05-01")

	l.Append(date, "AAPL", d(t, "10"), d(t, "1000"), d(t, "1"))
	l.Append(date, "AAPL", d(t, "5"), d(t, "500"), d(t, "0.5"))

	e := l.Get(date, "AAPL")
	assert.True(t, e.Qty.Equal(d(t, "15")))
	assert.True(t, e.Amount.Equal(d(t, "1500")))
	assert.True(t, e.Fees.Equal(d(t, "1.5")))
}

func TestGet_AbsentReturnsZeroValue(t *testing.T) {
	l := New()
	e := l.Get(day(t, "2023-05-01"), "MSFT")
	assert.True(t, e.Qty.IsZero())
	assert.True(t, e.Amount.IsZero())
	assert.True(t, e.Fees.IsZero())
	assert.False(t, l.Has(day(t, "2023-05-01"), "MSFT"))
}

func TestAppend_ERIsConcatenate(t *testing.T) {
	l := New()
	date := day(t, "2023-05-01")
	l.Append(date, "VUAG", d(t, "1"), d(t, "1"), d(t, "0"), ERIRef{Date: date, AmountPerShare: d(t, "0.05")})
	l.Append(date, "VUAG", d(t, "1"), d(t, "1"), d(t, "0"), ERIRef{Date: date, AmountPerShare: d(t, "0.03")})

	e := l.Get(date, "VUAG")
	require.Len(t, e.ERIs, 2)
}

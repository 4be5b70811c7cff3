package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxYearBounds(t *testing.T) {
	start := TaxYearStart(2023)
	end := TaxYearEnd(2023)
	assert.Equal(t, "2023-04-06", start.String())
	assert.Equal(t, "2024-04-05", end.String())
}

func TestInTaxYear_Inclusive(t *testing.T) {
	assert.True(t, InTaxYear(TaxYearStart(2023), 2023))
	assert.True(t, InTaxYear(TaxYearEnd(2023), 2023))

	before, err := ParseDayKey("2023-04-05")
	require.NoError(t, err)
	assert.False(t, InTaxYear(before, 2023))

	after, err := ParseDayKey("2024-04-06")
	require.NoError(t, err)
	assert.False(t, InTaxYear(after, 2023))
}

func TestBnBWindow_LeapDayBoundary(t *testing.T) {
	d, err := ParseDayKey("2024-02-29")
	require.NoError(t, err)

	window := BnBWindow(d)
	require.Len(t, window, 30)
	assert.Equal(t, "2024-03-01", window[0].String())
	assert.Equal(t, "2024-03-30", window[29].String())
}

func TestBnBWindow_D30VsD31(t *testing.T) {
	d, err := ParseDayKey("2023-05-05")
	require.NoError(t, err)
	window := BnBWindow(d)
	assert.Equal(t, "2023-06-04", window[29].String()) // D+30
	d31 := d.AddDays(31)
	assert.Equal(t, "2023-06-05", d31.String())
}

func TestDayKeyRoundTrip(t *testing.T) {
	d, err := ParseDayKey("2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", d.String())
	assert.True(t, d.AddDays(1).After(d))
}

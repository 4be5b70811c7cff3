package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

var errNotFound = errors.New("not found")

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

func TestRowError_Error(t *testing.T) {
	withLine := &RowError{Line: 7, Err: errNotFound}
	require.Equal(t, "ingest: row 7: not found", withLine.Error())

	withoutLine := &RowError{Err: errNotFound}
	require.Equal(t, "ingest: not found", withoutLine.Error())

	require.ErrorIs(t, withLine, errNotFound)
}

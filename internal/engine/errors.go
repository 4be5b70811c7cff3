package engine

import (
	"fmt"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

// MissingFieldError reports a required field absent from a transaction for
// its action (spec.md §7).
type MissingFieldError struct {
	Action Action
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("engine: %s transaction missing required field %q", e.Action, e.Field)
}

// NonPositiveQuantityError reports a zero or negative quantity on an
// acquire/dispose transaction (spec.md §7).
type NonPositiveQuantityError struct {
	Action   Action
	Symbol   string
	Quantity dec.Decimal
}

func (e *NonPositiveQuantityError) Error() string {
	return fmt.Sprintf("engine: %s %s has non-positive quantity %s", e.Action, e.Symbol, e.Quantity)
}

// AmountPriceMismatchError reports a recomputed amount disagreeing with the
// supplied amount beyond the §4.1 tolerance.
type AmountPriceMismatchError struct {
	Symbol   string
	Amount   dec.Decimal
	Computed dec.Decimal
}

func (e *AmountPriceMismatchError) Error() string {
	return fmt.Sprintf("engine: %s amount %s disagrees with price-derived amount %s beyond tolerance",
		e.Symbol, e.Amount, e.Computed)
}

// InvariantViolationError indicates a bug upstream in the matching pipeline
// (spec.md §7): e.g. Section 104 disposal exceeding pool after same-day/B&B,
// or B&B consumed exceeding acquired quantity.
type InvariantViolationError struct {
	Description string
}

func (e *InvariantViolationError) Error() string {
	return "engine: invariant violation: " + e.Description
}

// InvalidTransactionError is the catch-all for domain-specific contract
// breaks that do not fit the other kinds (e.g. ERI without an amount).
type InvalidTransactionError struct {
	Symbol  string
	Date    calendar.DayKey
	Message string
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("engine: invalid transaction %s@%s: %s", e.Symbol, e.Date, e.Message)
}

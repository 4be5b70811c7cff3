package report

import "cgtengine/internal/allowance"

// Table is the report assembler's own read-only view of the annual exempt
// amount lookup (SPEC_FULL.md §3 "AllowanceTable"), seeded from
// internal/allowance.Default and extendable per call site without mutating
// the package-level default the engine itself consults for Report.Allowance.
type Table = allowance.Table

// DefaultTable returns allowance.Default, the seeded 2021-2025 UK CGT
// annual exempt amounts (SPEC_FULL.md §6).
func DefaultTable() Table {
	return allowance.Default
}

// WithAllowance returns a copy of table with year set to amount
// (SPEC_FULL.md §6).
func WithAllowance(table Table, year int, amount int64) Table {
	return table.With(year, amount)
}

// Package allowance holds the UK CGT annual exempt amount lookup table
// (spec.md §6 "Allowance table"): a year -> whole-GBP amount mapping,
// consulted read-only by both the engine (for the raw figure stored on the
// Report) and the report assembler (for the taxable-gain computation).
package allowance

// Table maps a tax year (the starting calendar year, e.g. 2023 for the
// 2023/24 tax year) to its annual exempt amount in whole GBP.
type Table map[int]int64

// Default is seeded with the published UK CGT annual exempt amounts.
// Callers needing a different table (historical reprocessing, future years
// not yet published) should clone it and override entries rather than
// mutate the package-level default.
var Default = Table{
	2021: 12300,
	2022: 12300,
	2023: 6000,
	2024: 3000,
	2025: 3000,
}

// Lookup returns the exempt amount for taxYear, and whether it was found.
func (t Table) Lookup(taxYear int) (int64, bool) {
	v, ok := t[taxYear]
	return v, ok
}

// With returns a copy of t with year set to amount, leaving t unmodified.
func (t Table) With(year int, amount int64) Table {
	out := make(Table, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	out[year] = amount
	return out
}

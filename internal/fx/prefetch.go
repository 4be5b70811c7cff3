package fx

import (
	"context"

	"golang.org/x/sync/errgroup"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

// RatePair identifies a unique (currency, date) conversion the engine will
// need during a calculate call.
type RatePair struct {
	Currency string
	Date     calendar.DayKey
}

// prefetchConcurrency bounds how many upstream rate lookups PrefetchAll runs
// at once, mirroring the small worker pools the teacher's executor uses for
// bounded fan-out (internal/app/agent/executor.go).
const prefetchConcurrency = 8

// PrefetchAll resolves every pair concurrently against o and returns a
// StaticTable populated with the results, implementing the "deterministic
// one-shot" prefetch strategy named in spec.md §9. GBP pairs are skipped
// since the engine never consults the oracle for GBP amounts.
//
// A failure on any pair aborts the whole prefetch; partial results are
// discarded, consistent with the engine's all-or-nothing fatal-error
// semantics (spec.md §7).
func PrefetchAll(ctx context.Context, o Oracle, mode Mode, pairs []RatePair) (*StaticTable, error) {
	table := NewStaticTable(mode)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)

	type result struct {
		pair RatePair
		rate dec.Decimal
	}
	results := make(chan result, len(pairs))

	for _, p := range pairs {
		p := p
		if p.Currency == "GBP" {
			continue
		}
		g.Go(func() error {
			gbp, err := o.ToGBP(gctx, dec.One, p.Currency, p.Date)
			if err != nil {
				return err
			}
			if gbp.IsZero() {
				return &RateMissingError{Currency: p.Currency, Date: p.Date}
			}
			results <- result{pair: p, rate: dec.One.Div(gbp)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	for r := range results {
		table.Set(r.pair.Currency, r.pair.Date, r.rate)
	}
	return table, nil
}

// Package position holds per-symbol Section 104 pools and short-position
// FIFO queues, the two holding structures the matching rules read and
// mutate (spec.md §3, §4.12).
package position

import (
	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

// Pool is a symbol's Section 104 holding: a single quantity with one
// averaged cost basis. PooledCostGBP can transiently go slightly negative
// because of ERI reductions or rounding; callers must surface a
// data-quality warning in that case, not an error (spec.md §3).
type Pool struct {
	Quantity     dec.Decimal
	PooledCostGBP dec.Decimal
}

// ShortLot is one open FIFO entry in a symbol's short-position queue.
// NetProceedsGBP already has SellFeesGBP's proportional share netted out of
// it (spec.md §3).
type ShortLot struct {
	Quantity       dec.Decimal
	NetProceedsGBP dec.Decimal
	OpenDate       calendar.DayKey
	SellFeesGBP    dec.Decimal
}

// Store owns every symbol's pool and short queue for the scope of one
// computation (spec.md §3 "Ownership").
type Store struct {
	pools  map[string]*Pool
	shorts map[string][]*ShortLot
}

// New returns an empty position store.
func New() *Store {
	return &Store{
		pools:  make(map[string]*Pool),
		shorts: make(map[string][]*ShortLot),
	}
}

// PoolQuantity returns the current pool quantity for symbol, or zero if no
// pool exists.
func (s *Store) PoolQuantity(symbol string) dec.Decimal {
	if p, ok := s.pools[symbol]; ok {
		return p.Quantity
	}
	return dec.Zero
}

// Pool returns the live pool for symbol, creating an empty one if absent.
// Callers that only need to read should prefer PoolQuantity/PoolCost to
// avoid allocating pools for symbols with no holding.
func (s *Store) Pool(symbol string) *Pool {
	p, ok := s.pools[symbol]
	if !ok {
		p = &Pool{Quantity: dec.Zero, PooledCostGBP: dec.Zero}
		s.pools[symbol] = p
	}
	return p
}

// PoolCost returns the current pool cost for symbol, or zero if no pool
// exists.
func (s *Store) PoolCost(symbol string) dec.Decimal {
	if p, ok := s.pools[symbol]; ok {
		return p.PooledCostGBP
	}
	return dec.Zero
}

// AdjustPool adds dQty and dCost to symbol's pool, creating the pool if
// absent. When the resulting quantity is zero the pool is removed
// (spec.md §3 "Lifecycles").
func (s *Store) AdjustPool(symbol string, dQty, dCost dec.Decimal) {
	p := s.Pool(symbol)
	p.Quantity = p.Quantity.Add(dQty)
	p.PooledCostGBP = p.PooledCostGBP.Add(dCost)
	if p.Quantity.IsZero() {
		delete(s.pools, symbol)
	}
}

// AddCostOnly adjusts symbol's pool cost by dCost without touching quantity
// and without applying AdjustPool's zero-quantity deletion rule. Used for
// spin-off cost-basis transfers (spec.md §4.11 step 2), which can leave a
// destination position at zero quantity with a nonzero cost basis, or leave
// a source position momentarily untouched in quantity.
func (s *Store) AddCostOnly(symbol string, dCost dec.Decimal) {
	p := s.Pool(symbol)
	p.PooledCostGBP = p.PooledCostGBP.Add(dCost)
}

// HasPool reports whether symbol currently has a nonzero pool.
func (s *Store) HasPool(symbol string) bool {
	_, ok := s.pools[symbol]
	return ok
}

// AllPools returns a snapshot of every open pool, keyed by symbol.
func (s *Store) AllPools() map[string]Pool {
	out := make(map[string]Pool, len(s.pools))
	for sym, p := range s.pools {
		out[sym] = *p
	}
	return out
}

// OpenShort appends a new FIFO short entry for symbol (spec.md §4.9).
func (s *Store) OpenShort(symbol string, lot ShortLot) {
	s.shorts[symbol] = append(s.shorts[symbol], &lot)
}

// Shorts returns the live FIFO queue for symbol; the returned slice must
// not be mutated directly except through CoverFront.
func (s *Store) Shorts(symbol string) []*ShortLot {
	return s.shorts[symbol]
}

// HasShorts reports whether symbol has any open short lots.
func (s *Store) HasShorts(symbol string) bool {
	return len(s.shorts[symbol]) > 0
}

// CoverFront consumes coverQty from the oldest open short lot for symbol,
// returning the proportional slice of that lot's net proceeds it represents
// (spec.md §4.10: "short_proceeds_slice = short.net_proceeds × cover_qty /
// short.quantity"), and the lot's open date for audit/category-key
// purposes. The lot is removed once fully covered. coverQty must not exceed
// the front lot's remaining quantity; callers clamp to that bound.
func (s *Store) CoverFront(symbol string, coverQty dec.Decimal) (proceedsSlice dec.Decimal, openDate calendar.DayKey) {
	queue := s.shorts[symbol]
	if len(queue) == 0 {
		return dec.Zero, calendar.DayKey{}
	}
	front := queue[0]
	proceedsSlice = front.NetProceedsGBP.Mul(coverQty).Div(front.Quantity)
	openDate = front.OpenDate

	front.NetProceedsGBP = front.NetProceedsGBP.Sub(proceedsSlice)
	front.Quantity = front.Quantity.Sub(coverQty)
	if front.Quantity.LessThanOrEqual(dec.Zero) {
		s.shorts[symbol] = queue[1:]
		if len(s.shorts[symbol]) == 0 {
			delete(s.shorts, symbol)
		}
	}
	return proceedsSlice, openDate
}

// AllOpenShorts returns a snapshot of every symbol's open short queue.
func (s *Store) AllOpenShorts() map[string][]ShortLot {
	out := make(map[string][]ShortLot, len(s.shorts))
	for sym, queue := range s.shorts {
		lots := make([]ShortLot, len(queue))
		for i, l := range queue {
			lots[i] = *l
		}
		out[sym] = lots
	}
	return out
}

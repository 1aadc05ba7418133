// Package position implements the per (user, market, outcome) share
// holdings store described in spec.md §4.3 (C3): reservation accounting
// and a weighted-average cost basis, grounded on the teacher's
// AccountManager.UpdatePosition VWAP bookkeeping but simplified to the
// single-direction (0..N shares, never short) model a binary market needs.
package position

import (
	"fmt"
	"sync"

	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// Key identifies a position row.
type Key struct {
	UserID   types.UserID
	MarketID types.MarketID
	Outcome  types.Outcome
}

// Position is a user's share holdings in one outcome of one market.
type Position struct {
	Key
	Shares         decimal.Decimal
	ReservedShares decimal.Decimal
	AvgPrice       decimal.Decimal
}

// Store holds every position row, guarded by a single mutex. Per-market
// serialization is the coordinator's job (spec.md §5); this store only
// guarantees its own invariants are never observed broken.
type Store struct {
	mu        sync.Mutex
	positions map[Key]*Position
}

// New creates an empty position store.
func New() *Store {
	return &Store{positions: make(map[Key]*Position)}
}

func zeroPosition(k Key) *Position {
	return &Position{Key: k, Shares: decimal.Zero, ReservedShares: decimal.Zero, AvgPrice: decimal.Zero}
}

// Get returns a copy of a position row, or a zero-valued Position if the
// row does not exist. Get does not create the row; rows are created by
// the first mutating call (Reserve, Release, ConsumeReserved, Add, Clear).
func (s *Store) Get(k Key) Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[k]
	if !ok {
		return *zeroPosition(k)
	}
	return *p
}

// AvailableShares returns Shares - ReservedShares: what's left to sell or
// withdraw.
func (p Position) AvailableShares() decimal.Decimal {
	return p.Shares.Sub(p.ReservedShares)
}

// Reserve earmarks qty shares against an open SELL order. Requires
// shares - reservedShares >= qty.
func (s *Store) Reserve(k Key, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getOrCreateLocked(k)
	available := p.Shares.Sub(p.ReservedShares)
	if available.LessThan(qty) {
		return fmt.Errorf("position: insufficient shares for %s/%s/%s: have %s available, need %s",
			k.UserID, k.MarketID, k.Outcome, available, qty)
	}
	p.ReservedShares = p.ReservedShares.Add(qty)
	return nil
}

// Release returns qty previously reserved shares to the available pool.
func (s *Store) Release(k Key, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getOrCreateLocked(k)
	newReserved := p.ReservedShares.Sub(qty)
	if newReserved.IsNegative() {
		return fmt.Errorf("position: release %s would drive reservedShares negative for %s/%s/%s", qty, k.UserID, k.MarketID, k.Outcome)
	}
	p.ReservedShares = newReserved
	return nil
}

// ConsumeReserved moves qty shares out of the position entirely: used on
// a SELL fill, where shares and reservedShares move in lockstep.
func (s *Store) ConsumeReserved(k Key, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getOrCreateLocked(k)
	newShares := p.Shares.Sub(qty)
	newReserved := p.ReservedShares.Sub(qty)
	if newShares.IsNegative() || newReserved.IsNegative() {
		return fmt.Errorf("position: consume %s exceeds holdings for %s/%s/%s", qty, k.UserID, k.MarketID, k.Outcome)
	}
	p.Shares = newShares
	p.ReservedShares = newReserved
	return nil
}

// Add records a BUY fill: updates the weighted-average cost and
// increments shares.
func (s *Store) Add(k Key, qty, tradePrice decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getOrCreateLocked(k)
	if p.Shares.IsZero() {
		p.AvgPrice = tradePrice
	} else {
		numerator := p.Shares.Mul(p.AvgPrice).Add(qty.Mul(tradePrice))
		denominator := p.Shares.Add(qty)
		p.AvgPrice = numerator.DivRoundForDisplay(denominator)
	}
	p.Shares = p.Shares.Add(qty)
	return nil
}

// Clear zeroes out a position (used by resolution). The row remains for
// audit per spec.md §3.
func (s *Store) Clear(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getOrCreateLocked(k)
	p.Shares = decimal.Zero
	p.ReservedShares = decimal.Zero
}

func (s *Store) getOrCreateLocked(k Key) *Position {
	p, ok := s.positions[k]
	if !ok {
		p = zeroPosition(k)
		s.positions[k] = p
	}
	return p
}

// ListForUser returns every position row belonging to a user, across all
// markets — used by the portfolio query (C7).
func (s *Store) ListForUser(userID types.UserID) []Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Position
	for _, p := range s.positions {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out
}

// ListForMarketOutcome returns every position row for a given market and
// outcome — used by resolution to enumerate payees.
func (s *Store) ListForMarketOutcome(marketID types.MarketID, outcome types.Outcome) []Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Position
	for _, p := range s.positions {
		if p.MarketID == marketID && p.Outcome == outcome {
			out = append(out, *p)
		}
	}
	return out
}

// Package market tracks the lifecycle of binary prediction markets:
// registration and the OPEN -> RESOLVED | CANCELLED status transitions
// described in spec.md §4.1 and §5. Grounded on the teacher's
// MarketRegistry (symbol-keyed map, mutex-guarded, status-transition
// validation), adapted from the teacher's Active/Paused/Settling/Settled
// lifecycle to the binary market's simpler Open/Resolved/Cancelled one.
package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/wyvernlabs/predictcore/pkg/types"
)

// Registry holds every known market, keyed by ID.
type Registry struct {
	mu      sync.RWMutex
	markets map[types.MarketID]*types.Market
}

// New creates an empty market registry.
func New() *Registry {
	return &Registry{markets: make(map[types.MarketID]*types.Market)}
}

// Create registers a new OPEN market. Returns an error if the ID is
// already taken.
func (r *Registry) Create(id types.MarketID, question string, now time.Time) (types.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.markets[id]; exists {
		return types.Market{}, fmt.Errorf("market: %s already registered", id)
	}
	m := &types.Market{ID: id, Question: question, Status: types.MarketOpen, CreatedAt: now}
	r.markets[id] = m
	return *m, nil
}

// Get returns a copy of a market's current state.
func (r *Registry) Get(id types.MarketID) (types.Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, exists := r.markets[id]
	if !exists {
		return types.Market{}, fmt.Errorf("market: %s not found", id)
	}
	return *m, nil
}

// List returns every registered market.
func (r *Registry) List() []types.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Market, 0, len(r.markets))
	for _, m := range r.markets {
		out = append(out, *m)
	}
	return out
}

// ListOpen returns only markets currently accepting orders.
func (r *Registry) ListOpen() []types.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.Market
	for _, m := range r.markets {
		if m.Status == types.MarketOpen {
			out = append(out, *m)
		}
	}
	return out
}

// Resolve transitions a market to RESOLVED. Resolved and Cancelled are
// both terminal: a market can only leave OPEN once.
func (r *Registry) Resolve(id types.MarketID) error {
	return r.transition(id, types.MarketResolved)
}

// Cancel transitions a market to CANCELLED.
func (r *Registry) Cancel(id types.MarketID) error {
	return r.transition(id, types.MarketCancelled)
}

func (r *Registry) transition(id types.MarketID, to types.MarketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.markets[id]
	if !exists {
		return fmt.Errorf("market: %s not found", id)
	}
	if m.Status != types.MarketOpen {
		return fmt.Errorf("market: %s is %s, not OPEN — terminal states cannot be re-transitioned", id, m.Status)
	}
	m.Status = to
	return nil
}

// IsOpen reports whether a market currently accepts new orders.
func (r *Registry) IsOpen(id types.MarketID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, exists := r.markets[id]
	return exists && m.Status == types.MarketOpen
}

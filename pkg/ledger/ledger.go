// Package ledger implements the append-only balance-delta log and the
// current-balance projection described in spec.md §4.2 (C2). It is
// grounded on the teacher's AccountManager (mutex-guarded map, reserve/
// release accounting) but departs from it in one deliberate way: balances
// are created exactly once via Register, and Apply fails if the row is
// missing, instead of silently upserting on first use. spec.md §9 calls
// this out explicitly as safer against mis-attributed writes.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// InvariantError reports a would-be-negative balance. spec.md §7 treats
// this as fatal: the caller should not retry blindly.
type InvariantError struct {
	UserID  types.UserID
	Field   string
	Attempt decimal.Decimal
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("ledger: invariant violation: %s.%s would become %s", e.UserID, e.Field, e.Attempt)
}

// Balance is a user's current cash position.
type Balance struct {
	UserID    types.UserID
	Available decimal.Decimal
	Reserved  decimal.Decimal
}

// Entry is an immutable ledger record. Entries are never updated or
// deleted once appended.
type Entry struct {
	ID             uint64
	UserID         types.UserID
	DeltaAvailable decimal.Decimal
	DeltaReserved  decimal.Decimal
	Reason         types.LedgerReason
	RefType        types.RefType
	RefID          string
	CreatedAt      time.Time
}

// Delta is one balance mutation to apply.
type Delta struct {
	UserID         types.UserID
	DeltaAvailable decimal.Decimal
	DeltaReserved  decimal.Decimal
	Reason         types.LedgerReason
	RefType        types.RefType
	RefID          string
}

// Sink persists ledger entries and balance snapshots. The in-memory
// Ledger below is usable on its own for tests and as the source of truth
// during a process's lifetime; a Sink lets the storage adapter (C10)
// mirror every write for durability without the ledger itself knowing
// about Pebble.
type Sink interface {
	OnEntry(Entry, Balance)
}

// Ledger is the append-only balance-delta log plus current-balance
// projection. All mutations for a user are serialized by a single mutex;
// spec.md's per-market coordinator lock additionally serializes multi-user
// events so that a whole trade's deltas land as one unit.
type Ledger struct {
	mu       sync.Mutex
	balances map[types.UserID]*Balance
	entries  []Entry
	nextID   uint64
	sinks    []Sink
	now      func() time.Time
}

// New creates an empty ledger. The SYSTEM account is pre-registered since
// every trade event touches it for fee collection.
func New() *Ledger {
	l := &Ledger{
		balances: make(map[types.UserID]*Balance),
		now:      time.Now,
	}
	l.Register(types.SystemAccountID)
	return l
}

// AddSink attaches a persistence observer invoked after each successful
// entry is appended (while still holding the ledger's lock, so sinks must
// not call back into the ledger).
func (l *Ledger) AddSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Register creates a zero balance row for a user. Calling it twice for the
// same user is a no-op.
func (l *Ledger) Register(userID types.UserID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[userID]; ok {
		return
	}
	l.balances[userID] = &Balance{UserID: userID, Available: decimal.Zero, Reserved: decimal.Zero}
}

// GetBalance returns a copy of the user's current balance.
func (l *Ledger) GetBalance(userID types.UserID) (Balance, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[userID]
	if !ok {
		return Balance{}, false
	}
	return *b, true
}

// ListBalances returns a snapshot of every registered balance, mirroring
// the teacher's AccountManager.ListAccounts query surface.
func (l *Ledger) ListBalances() []Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Balance, 0, len(l.balances))
	for _, b := range l.balances {
		out = append(out, *b)
	}
	return out
}

// Apply applies a single delta under the ledger's lock. It is exported for
// the rare single-delta case (e.g. a faucet credit); coordinator-driven
// trading events should use ApplyBatch so the whole event is atomic.
func (l *Ledger) Apply(d Delta) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, err := l.applyLocked(d)
	return entry, err
}

// ApplyBatch applies every delta as a single atomic unit: either all
// deltas succeed, or none are visible. Partial success is impossible
// because validation for every delta runs before any balance is mutated.
func (l *Ledger) ApplyBatch(deltas []Delta) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Pre-validate every delta against a scratch projection before
	// mutating real state, so a late failure can't leave a partial write.
	scratch := make(map[types.UserID]Balance, len(deltas))
	for _, d := range deltas {
		cur, ok := scratch[d.UserID]
		if !ok {
			b, exists := l.balances[d.UserID]
			if !exists {
				return nil, fmt.Errorf("ledger: unknown user %s", d.UserID)
			}
			cur = *b
		}
		cur.Available = cur.Available.Add(d.DeltaAvailable)
		cur.Reserved = cur.Reserved.Add(d.DeltaReserved)
		if cur.Available.IsNegative() {
			return nil, &InvariantError{UserID: d.UserID, Field: "available", Attempt: cur.Available}
		}
		if cur.Reserved.IsNegative() {
			return nil, &InvariantError{UserID: d.UserID, Field: "reserved", Attempt: cur.Reserved}
		}
		scratch[d.UserID] = cur
	}

	entries := make([]Entry, 0, len(deltas))
	for _, d := range deltas {
		entry, err := l.applyLocked(d)
		if err != nil {
			// Unreachable given the pre-validation above; kept as a
			// defensive invariant boundary.
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *Ledger) applyLocked(d Delta) (Entry, error) {
	b, ok := l.balances[d.UserID]
	if !ok {
		return Entry{}, fmt.Errorf("ledger: unknown user %s", d.UserID)
	}

	newAvailable := b.Available.Add(d.DeltaAvailable)
	newReserved := b.Reserved.Add(d.DeltaReserved)
	if newAvailable.IsNegative() {
		return Entry{}, &InvariantError{UserID: d.UserID, Field: "available", Attempt: newAvailable}
	}
	if newReserved.IsNegative() {
		return Entry{}, &InvariantError{UserID: d.UserID, Field: "reserved", Attempt: newReserved}
	}

	b.Available = newAvailable
	b.Reserved = newReserved

	l.nextID++
	entry := Entry{
		ID:             l.nextID,
		UserID:         d.UserID,
		DeltaAvailable: d.DeltaAvailable,
		DeltaReserved:  d.DeltaReserved,
		Reason:         d.Reason,
		RefType:        d.RefType,
		RefID:          d.RefID,
		CreatedAt:      l.now(),
	}
	l.entries = append(l.entries, entry)

	snapshot := *b
	for _, s := range l.sinks {
		s.OnEntry(entry, snapshot)
	}
	return entry, nil
}

// Entries returns every ledger entry in append order. Intended for audit
// and test assertions, not the hot path.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// SetClock overrides the time source; used by tests that need
// deterministic timestamps.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

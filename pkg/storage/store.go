package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/wyvernlabs/predictcore/pkg/ledger"
	"github.com/wyvernlabs/predictcore/pkg/position"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// commitRetryAttempts/commitRetryDelay bound the retry of a ledger-entry
// commit against transient Pebble errors (e.g. a momentary resource
// exhaustion), mirroring the batch-submission retry loop pattern used
// elsewhere in the retrieval pack. A commit that still fails after the
// bound is a genuine storage failure, not a transient one, and panics.
const (
	commitRetryAttempts = 3
	commitRetryDelay    = 50 * time.Millisecond
)

func commitWithRetry(batch *pebble.Batch) error {
	var lastErr error
	for attempt := 0; attempt < commitRetryAttempts; attempt++ {
		if err := batch.Commit(pebble.Sync); err != nil {
			lastErr = err
			time.Sleep(commitRetryDelay)
			continue
		}
		return nil
	}
	return fmt.Errorf("storage: commit failed after %d attempts: %w", commitRetryAttempts, lastErr)
}

// Store is the embedded Pebble database. It implements ledger.Sink so a
// Ledger can mirror every applied entry durably, and exposes load/save
// calls for positions, orders, and markets so the coordinator can
// recover full state on restart.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if absent) the Pebble database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// OnEntry implements ledger.Sink: every applied ledger entry is appended
// durably and the balance projection for that user is overwritten with
// its latest snapshot.
func (s *Store) OnEntry(entry ledger.Entry, bal ledger.Balance) {
	entryData, err := json.Marshal(entry)
	if err != nil {
		panic(fmt.Errorf("storage: marshal ledger entry: %w", err))
	}
	balData, err := json.Marshal(bal)
	if err != nil {
		panic(fmt.Errorf("storage: marshal balance: %w", err))
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(ledgerKey(string(entry.UserID), entry.ID), entryData, nil); err != nil {
		panic(fmt.Errorf("storage: stage ledger entry: %w", err))
	}
	if err := batch.Set(balanceKey(string(entry.UserID)), balData, nil); err != nil {
		panic(fmt.Errorf("storage: stage balance: %w", err))
	}
	if err := commitWithRetry(batch); err != nil {
		panic(fmt.Errorf("storage: commit ledger entry: %w", err))
	}
}

// LoadBalance returns a user's persisted balance, if any.
func (s *Store) LoadBalance(userID types.UserID) (ledger.Balance, bool, error) {
	val, closer, err := s.db.Get(balanceKey(string(userID)))
	if err != nil {
		if err == pebble.ErrNotFound {
			return ledger.Balance{}, false, nil
		}
		return ledger.Balance{}, false, err
	}
	defer closer.Close()
	var bal ledger.Balance
	if err := json.Unmarshal(val, &bal); err != nil {
		return ledger.Balance{}, false, fmt.Errorf("storage: unmarshal balance: %w", err)
	}
	return bal, true, nil
}

// LoadLedgerEntries returns every persisted entry for a user, in append
// order (entry IDs are zero-padded in the key so lexicographic iteration
// is chronological).
func (s *Store) LoadLedgerEntries(userID types.UserID) ([]ledger.Entry, error) {
	prefix := ledgerPrefix(string(userID))
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []ledger.Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var e ledger.Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("storage: unmarshal ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, iter.Error()
}

// SavePosition persists a single position row.
func (s *Store) SavePosition(p position.Position) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("storage: marshal position: %w", err)
	}
	key := positionKey(string(p.UserID), string(p.MarketID), p.Outcome.String())
	return s.db.Set(key, data, pebble.Sync)
}

// LoadPositionsForUser returns every persisted position row for a user.
func (s *Store) LoadPositionsForUser(userID types.UserID) ([]position.Position, error) {
	prefix := positionPrefixForUser(string(userID))
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []position.Position
	for iter.First(); iter.Valid(); iter.Next() {
		var p position.Position
		if err := json.Unmarshal(iter.Value(), &p); err != nil {
			return nil, fmt.Errorf("storage: unmarshal position: %w", err)
		}
		out = append(out, p)
	}
	return out, iter.Error()
}

// SaveOrder persists an order's current state.
func (s *Store) SaveOrder(o types.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("storage: marshal order: %w", err)
	}
	return s.db.Set(orderKey(string(o.MarketID), string(o.ID)), data, pebble.Sync)
}

// LoadOrdersForMarket returns every persisted order for a market,
// including terminal ones; callers filter by status (e.g. recovery only
// wants OPEN/PARTIAL).
func (s *Store) LoadOrdersForMarket(marketID types.MarketID) ([]types.Order, error) {
	prefix := orderPrefixForMarket(string(marketID))
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []types.Order
	for iter.First(); iter.Valid(); iter.Next() {
		var o types.Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			return nil, fmt.Errorf("storage: unmarshal order: %w", err)
		}
		out = append(out, o)
	}
	return out, iter.Error()
}

// SaveMarket persists a market's current state.
func (s *Store) SaveMarket(m types.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("storage: marshal market: %w", err)
	}
	return s.db.Set(marketKey(string(m.ID)), data, pebble.Sync)
}

// LoadAllMarkets returns every persisted market, used to rebuild the
// market registry on startup.
func (s *Store) LoadAllMarkets() ([]types.Market, error) {
	prefix := marketPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []types.Market
	for iter.First(); iter.Valid(); iter.Next() {
		var m types.Market
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("storage: unmarshal market: %w", err)
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

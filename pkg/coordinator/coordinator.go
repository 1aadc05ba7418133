// Package coordinator sequences every trading event against a single
// market's state: the order book, the ledger, and the position store.
// It implements spec.md §4.6/§5 (C6) — the single-writer-per-market
// trading coordinator. Grounded on the teacher's AccountManager/
// OrderBook pairing (a mutex-guarded manager whose methods are the only
// legal way to mutate state), generalized here to one mutex per market
// so two markets trade concurrently while within a market every event
// is fully serialized.
package coordinator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/ledger"
	"github.com/wyvernlabs/predictcore/pkg/market"
	"github.com/wyvernlabs/predictcore/pkg/orderbook"
	"github.com/wyvernlabs/predictcore/pkg/position"
	"github.com/wyvernlabs/predictcore/pkg/settlement"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// Clock is the time source, overridable in tests.
type Clock func() time.Time

// EventLogger receives a structured record of every committed event.
// The C8/C9 adapters (zap logging, Prometheus metrics) implement this to
// observe the coordinator without it depending on either concern
// directly.
type EventLogger interface {
	OnOrderPlaced(o types.Order, fills []orderbook.Fill)
	OnOrderCancelled(o types.Order)
	OnMarketCancelled(marketID types.MarketID, affected int)
	OnMarketResolved(marketID types.MarketID, outcome types.Outcome, payees int, totalPayout decimal.Decimal)
}

// noopLogger discards every event; the default when no EventLogger is
// wired.
type noopLogger struct{}

func (noopLogger) OnOrderPlaced(types.Order, []orderbook.Fill)         {}
func (noopLogger) OnOrderCancelled(types.Order)                        {}
func (noopLogger) OnMarketCancelled(types.MarketID, int)               {}
func (noopLogger) OnMarketResolved(types.MarketID, types.Outcome, int, decimal.Decimal) {}

// marketState bundles the two order books (YES and NO) for one market
// plus the mutex that makes every operation against it atomic.
type marketState struct {
	mu    sync.Mutex
	books map[types.Outcome]*orderbook.Book
}

func newMarketState(marketID types.MarketID, selfTradeGuard bool) *marketState {
	yes := orderbook.New(marketID, types.YES)
	no := orderbook.New(marketID, types.NO)
	yes.SetSelfTradeGuard(selfTradeGuard)
	no.SetSelfTradeGuard(selfTradeGuard)
	return &marketState{
		books: map[types.Outcome]*orderbook.Book{
			types.YES: yes,
			types.NO:  no,
		},
	}
}

// Coordinator is the single entry point for every trading operation. All
// reads of committed state should go through it too, so that a snapshot
// never straddles an in-flight event.
type Coordinator struct {
	feeRate        decimal.Decimal
	clock          Clock
	logger         EventLogger
	selfTradeGuard bool

	markets  *market.Registry
	ledger   *ledger.Ledger
	position *position.Store

	mu     sync.Mutex // guards the marketStates map itself, not trading
	states map[types.MarketID]*marketState

	ordersMu sync.Mutex
	orders   map[types.OrderID]*types.Order
	nextSeq  uint64
}

// New creates a coordinator wired to the given stores. feeRate is the
// taker fee charged on every trade (spec.md §6 Configuration).
func New(markets *market.Registry, l *ledger.Ledger, positions *position.Store, feeRate decimal.Decimal) *Coordinator {
	return &Coordinator{
		feeRate:  feeRate,
		clock:    time.Now,
		logger:   noopLogger{},
		markets:  markets,
		ledger:   l,
		position: positions,
		states:   make(map[types.MarketID]*marketState),
		orders:   make(map[types.OrderID]*types.Order),
	}
}

// SetClock overrides the time source.
func (c *Coordinator) SetClock(clock Clock) { c.clock = clock }

// SetSelfTradeGuard toggles self-trade prevention for every market this
// coordinator manages, including markets created after this call. Off
// by default, matching spec.md §9's Open Question decision that the
// engine does not forbid self-trading unless a caller opts in.
func (c *Coordinator) SetSelfTradeGuard(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selfTradeGuard = enabled
	for _, s := range c.states {
		for _, book := range s.books {
			book.SetSelfTradeGuard(enabled)
		}
	}
}

// SetLogger wires an EventLogger; nil restores the no-op logger.
func (c *Coordinator) SetLogger(l EventLogger) {
	if l == nil {
		l = noopLogger{}
	}
	c.logger = l
}

func (c *Coordinator) stateFor(marketID types.MarketID) *marketState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[marketID]
	if !ok {
		s = newMarketState(marketID, c.selfTradeGuard)
		c.states[marketID] = s
	}
	return s
}

func (c *Coordinator) bookFor(marketID types.MarketID, outcome types.Outcome) *orderbook.Book {
	return c.stateFor(marketID).books[outcome]
}

// PlaceOrderRequest is the input to PlaceOrder.
type PlaceOrderRequest struct {
	UserID   types.UserID
	MarketID types.MarketID
	Outcome  types.Outcome
	Side     types.Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// PlaceOrder admits a new order into a market: it reserves funds or
// shares, matches against the resting book, and commits every resulting
// ledger/position/order-state change as one atomic unit. Matching and
// settlement for a single market never run concurrently — the
// marketState mutex below is held for the full call.
func (c *Coordinator) PlaceOrder(id types.OrderID, req PlaceOrderRequest) (types.Order, []orderbook.Fill, error) {
	if !c.markets.IsOpen(req.MarketID) {
		return types.Order{}, nil, fmt.Errorf("coordinator: market %s is not open", req.MarketID)
	}

	state := c.stateFor(req.MarketID)
	state.mu.Lock()
	defer state.mu.Unlock()

	o := &types.Order{
		ID: id, UserID: req.UserID, MarketID: req.MarketID, Outcome: req.Outcome,
		Side: req.Side, Price: req.Price, Quantity: req.Quantity, Remaining: req.Quantity,
		Status: types.OrderOpen, CreatedAt: c.clock(), Seq: c.nextSequence(),
	}

	reservePlan := settlement.PlanOrderReserve(o, c.feeRate)
	if err := c.commit(reservePlan); err != nil {
		return types.Order{}, nil, fmt.Errorf("coordinator: reserve failed: %w", err)
	}

	book := state.books[req.Outcome]
	fills := book.Place(o)

	for _, f := range fills {
		maker, ok := c.lookupOrder(f.MakerOrderID)
		if !ok {
			return types.Order{}, nil, fmt.Errorf("coordinator: maker order %s missing from index", f.MakerOrderID)
		}
		var taker *types.Order = o
		tradePlan := settlement.PlanTrade(f, taker, maker, c.feeRate)
		if err := c.commit(tradePlan); err != nil {
			return types.Order{}, nil, fmt.Errorf("coordinator: trade settlement failed: %w", err)
		}
	}

	c.indexOrder(o)
	c.logger.OnOrderPlaced(*o, fills)
	return *o, fills, nil
}

// CancelOrder removes a resting order from its book and releases
// whatever portion of its reservation remains outstanding.
func (c *Coordinator) CancelOrder(id types.OrderID) (types.Order, error) {
	o, ok := c.lookupOrder(id)
	if !ok {
		return types.Order{}, fmt.Errorf("coordinator: order %s not found", id)
	}

	state := c.stateFor(o.MarketID)
	state.mu.Lock()
	defer state.mu.Unlock()

	book := state.books[o.Outcome]
	removed, ok := book.Cancel(id)
	if !ok {
		return types.Order{}, fmt.Errorf("coordinator: order %s not resting (already filled or cancelled)", id)
	}

	plan := settlement.PlanOrderCancel(removed, c.feeRate)
	if err := c.commit(plan); err != nil {
		return types.Order{}, fmt.Errorf("coordinator: cancel settlement failed: %w", err)
	}
	c.logger.OnOrderCancelled(*removed)
	return *removed, nil
}

// CancelMarket cancels every resting order in both outcome books of a
// market and refunds every outstanding reservation, then marks the
// market CANCELLED (spec.md §5.5).
func (c *Coordinator) CancelMarket(marketID types.MarketID) error {
	state := c.stateFor(marketID)
	state.mu.Lock()
	defer state.mu.Unlock()

	var affected []*types.Order
	for _, book := range state.books {
		affected = append(affected, book.ClearAll()...)
	}

	plan := settlement.PlanMarketCancel(affected, c.feeRate)
	if err := c.commit(plan); err != nil {
		return fmt.Errorf("coordinator: market cancel settlement failed: %w", err)
	}
	if err := c.markets.Cancel(marketID); err != nil {
		return err
	}
	c.logger.OnMarketCancelled(marketID, len(affected))
	return nil
}

// ResolveMarket cancels every resting order (so no further trading can
// occur), pays out 1.00 per share held in the winning outcome across
// every holder, clears every position in the market, and marks the
// market RESOLVED (spec.md §5.4).
func (c *Coordinator) ResolveMarket(marketID types.MarketID, winningOutcome types.Outcome) error {
	state := c.stateFor(marketID)
	state.mu.Lock()
	defer state.mu.Unlock()

	var affected []*types.Order
	for _, book := range state.books {
		affected = append(affected, book.ClearAll()...)
	}
	cancelPlan := settlement.PlanMarketCancel(affected, c.feeRate)
	if err := c.commit(cancelPlan); err != nil {
		return fmt.Errorf("coordinator: pre-resolution cancel failed: %w", err)
	}

	losingOutcome := winningOutcome.Opposite()
	winningHolders := c.position.ListForMarketOutcome(marketID, winningOutcome)
	losingHolders := c.position.ListForMarketOutcome(marketID, losingOutcome)

	winners := make([]settlement.ResolvePosition, 0, len(winningHolders))
	totalPayout := decimal.Zero
	for _, h := range winningHolders {
		winners = append(winners, settlement.ResolvePosition{UserID: h.UserID, Shares: h.Shares})
		totalPayout = totalPayout.Add(h.Shares)
	}
	losers := make([]settlement.ResolvePosition, 0, len(losingHolders))
	for _, h := range losingHolders {
		losers = append(losers, settlement.ResolvePosition{UserID: h.UserID, Shares: h.Shares})
	}

	resolvePlan := settlement.PlanResolve(marketID, winners, losers, decimal.NewFromInt(1))
	if err := c.commit(resolvePlan); err != nil {
		return fmt.Errorf("coordinator: resolution payout failed: %w", err)
	}

	for _, outcome := range []types.Outcome{types.YES, types.NO} {
		for _, h := range c.position.ListForMarketOutcome(marketID, outcome) {
			c.position.Clear(h.Key)
		}
	}

	if err := c.markets.Resolve(marketID); err != nil {
		return err
	}
	c.logger.OnMarketResolved(marketID, winningOutcome, len(winners), totalPayout)
	return nil
}

// commit applies a settlement plan's ledger deltas atomically, then
// applies its position and order-state changes. The ledger's ApplyBatch
// pre-validates every delta before mutating, so a ledger failure leaves
// nothing committed; position and order-state changes are derived from
// the same plan and cannot independently violate an invariant once the
// ledger step has succeeded.
func (c *Coordinator) commit(plan settlement.Plan) error {
	if len(plan.LedgerDeltas) > 0 {
		if _, err := c.ledger.ApplyBatch(plan.LedgerDeltas); err != nil {
			return err
		}
	}
	for _, pd := range plan.PositionDeltas {
		var err error
		switch pd.Op {
		case settlement.PosReserve:
			err = c.position.Reserve(pd.Key, pd.Qty)
		case settlement.PosRelease:
			err = c.position.Release(pd.Key, pd.Qty)
		case settlement.PosConsumeReserved:
			err = c.position.ConsumeReserved(pd.Key, pd.Qty)
		case settlement.PosAdd:
			err = c.position.Add(pd.Key, pd.Qty, pd.Price)
		case settlement.PosClear:
			c.position.Clear(pd.Key)
		}
		if err != nil {
			return fmt.Errorf("coordinator: position commit failed: %w", err)
		}
	}
	for _, oc := range plan.OrderStateChanges {
		if o, ok := c.lookupOrder(oc.OrderID); ok {
			o.Status = oc.Status
			o.Remaining = oc.Remaining
		}
	}
	return nil
}

func (c *Coordinator) nextSequence() uint64 {
	c.ordersMu.Lock()
	defer c.ordersMu.Unlock()
	c.nextSeq++
	return c.nextSeq
}

func (c *Coordinator) indexOrder(o *types.Order) {
	c.ordersMu.Lock()
	defer c.ordersMu.Unlock()
	c.orders[o.ID] = o
}

func (c *Coordinator) lookupOrder(id types.OrderID) (*types.Order, bool) {
	c.ordersMu.Lock()
	defer c.ordersMu.Unlock()
	o, ok := c.orders[id]
	return o, ok
}

// Order returns a copy of an order's current state by ID, regardless of
// whether it's still resting.
func (c *Coordinator) Order(id types.OrderID) (types.Order, bool) {
	o, ok := c.lookupOrder(id)
	if !ok {
		return types.Order{}, false
	}
	return *o, true
}

// BookDepth returns the current bid/ask depth snapshot for one outcome
// of a market.
func (c *Coordinator) BookDepth(marketID types.MarketID, outcome types.Outcome, depth int) (bids, asks []orderbook.PriceLevel) {
	book := c.bookFor(marketID, outcome)
	return book.BidLevels(depth), book.AskLevels(depth)
}

// Recover replays a set of previously-open or partially-filled orders
// back onto their books in admission order (by Seq), without re-running
// reservation or settlement — their reservations and fills are already
// reflected in the ledger and position store from before the restart.
// This implements the startup recovery spec.md §5.6 requires of a
// single-writer engine with no replicated log of its own.
func (c *Coordinator) Recover(orders []types.Order) {
	sorted := make([]types.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })
	for i := range sorted {
		o := sorted[i]
		if o.Status != types.OrderOpen && o.Status != types.OrderPartial {
			continue
		}
		state := c.stateFor(o.MarketID)
		book := state.books[o.Outcome]
		cp := o
		book.RestoreResting(&cp)
		c.indexOrder(&cp)
		if cp.Seq >= c.nextSeq {
			c.nextSeq = cp.Seq
		}
	}
}

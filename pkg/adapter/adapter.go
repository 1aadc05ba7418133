// Package adapter is the trading core's external interface (C7): a thin
// façade over the coordinator, ledger, position, and market packages that
// speaks plain Go method calls and canonical DTOs. Deliberately carries
// no HTTP framing, auth, or wire codec of its own — spec.md's non-goals
// push those concerns to whatever process embeds this core. Grounded on
// the teacher's core.go re-export wrapper (a package whose only job is to
// narrow a wide internal surface to the handful of calls an outer layer
// needs), generalized from its blockchain RPC surface to this domain's
// order/portfolio/market-snapshot surface.
package adapter

import (
	"fmt"
	"time"

	"github.com/wyvernlabs/predictcore/pkg/coordinator"
	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/ledger"
	"github.com/wyvernlabs/predictcore/pkg/market"
	"github.com/wyvernlabs/predictcore/pkg/orderbook"
	"github.com/wyvernlabs/predictcore/pkg/position"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// Core is the embeddable entry point. Every exported method is safe to
// call concurrently; the coordinator below already serializes per-market
// state, and the ledger/position/market stores guard themselves.
type Core struct {
	Coordinator *coordinator.Coordinator
	Markets     *market.Registry
	Ledger      *ledger.Ledger
	Positions   *position.Store
}

// OrderDTO is the canonical external representation of an order. Prices
// and quantities serialize as decimal strings (pkg/decimal's MarshalJSON)
// so no caller ever round-trips a limit price through a float.
type OrderDTO struct {
	ID        types.OrderID    `json:"id"`
	UserID    types.UserID     `json:"user_id"`
	MarketID  types.MarketID   `json:"market_id"`
	Outcome   string           `json:"outcome"`
	Side      string           `json:"side"`
	Price     decimal.Decimal  `json:"price"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Remaining decimal.Decimal  `json:"remaining"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

func orderToDTO(o types.Order) OrderDTO {
	return OrderDTO{
		ID: o.ID, UserID: o.UserID, MarketID: o.MarketID,
		Outcome: o.Outcome.String(), Side: o.Side.String(),
		Price: o.Price, Quantity: o.Quantity, Remaining: o.Remaining,
		Status: o.Status.String(), CreatedAt: o.CreatedAt,
	}
}

// FillDTO is one execution resulting from a PlaceOrder call.
type FillDTO struct {
	TakerOrderID types.OrderID   `json:"taker_order_id"`
	MakerOrderID types.OrderID   `json:"maker_order_id"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
}

func fillToDTO(f orderbook.Fill) FillDTO {
	return FillDTO{TakerOrderID: f.TakerOrderID, MakerOrderID: f.MakerOrderID, Price: f.Price, Quantity: f.Quantity}
}

// PlaceOrderInput is the request shape for PlaceOrder.
type PlaceOrderInput struct {
	UserID   types.UserID
	MarketID types.MarketID
	Outcome  types.Outcome
	Side     types.Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// PlaceOrder admits a new order, matching it against the resting book.
// The caller supplies the order ID (typically a UUID minted at the edge)
// so retries are idempotent at the transport layer, which this package
// does not itself implement.
func (c *Core) PlaceOrder(id types.OrderID, in PlaceOrderInput) (OrderDTO, []FillDTO, error) {
	o, fills, err := c.Coordinator.PlaceOrder(id, coordinator.PlaceOrderRequest{
		UserID: in.UserID, MarketID: in.MarketID, Outcome: in.Outcome,
		Side: in.Side, Price: in.Price, Quantity: in.Quantity,
	})
	if err != nil {
		return OrderDTO{}, nil, err
	}
	dtoFills := make([]FillDTO, len(fills))
	for i, f := range fills {
		dtoFills[i] = fillToDTO(f)
	}
	return orderToDTO(o), dtoFills, nil
}

// CancelOrder cancels a resting order and releases its reservation.
func (c *Core) CancelOrder(id types.OrderID) (OrderDTO, error) {
	o, err := c.Coordinator.CancelOrder(id)
	if err != nil {
		return OrderDTO{}, err
	}
	return orderToDTO(o), nil
}

// CancelMarket cancels every resting order in a market and marks it
// CANCELLED.
func (c *Core) CancelMarket(marketID types.MarketID) error {
	return c.Coordinator.CancelMarket(marketID)
}

// ResolveMarket settles a market to its winning outcome, paying every
// holder of that outcome 1.00 per share.
func (c *Core) ResolveMarket(marketID types.MarketID, winningOutcome types.Outcome) error {
	return c.Coordinator.ResolveMarket(marketID, winningOutcome)
}

// OrderStatus returns the current state of a previously placed order.
func (c *Core) OrderStatus(id types.OrderID) (OrderDTO, error) {
	o, ok := c.Coordinator.Order(id)
	if !ok {
		return OrderDTO{}, fmt.Errorf("adapter: order %s not found", id)
	}
	return orderToDTO(o), nil
}

// PriceLevelDTO is one depth row in a book snapshot.
type PriceLevelDTO struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// MarketSnapshot is the external view of one outcome's order book.
type MarketSnapshot struct {
	MarketID types.MarketID  `json:"market_id"`
	Outcome  string          `json:"outcome"`
	Bids     []PriceLevelDTO `json:"bids"`
	Asks     []PriceLevelDTO `json:"asks"`
}

// MarketSnapshot returns the top depth levels of one outcome's book.
func (c *Core) MarketSnapshot(marketID types.MarketID, outcome types.Outcome, depth int) MarketSnapshot {
	bids, asks := c.Coordinator.BookDepth(marketID, outcome, depth)
	snap := MarketSnapshot{MarketID: marketID, Outcome: outcome.String()}
	for _, l := range bids {
		snap.Bids = append(snap.Bids, PriceLevelDTO{Price: l.Price, Quantity: l.Quantity})
	}
	for _, l := range asks {
		snap.Asks = append(snap.Asks, PriceLevelDTO{Price: l.Price, Quantity: l.Quantity})
	}
	return snap
}

// PositionDTO is one holding in a user's portfolio.
type PositionDTO struct {
	MarketID       types.MarketID  `json:"market_id"`
	Outcome        string          `json:"outcome"`
	Shares         decimal.Decimal `json:"shares"`
	ReservedShares decimal.Decimal `json:"reserved_shares"`
	AvgPrice       decimal.Decimal `json:"avg_price"`
}

// Portfolio is a user's full cash balance plus every held position.
type Portfolio struct {
	UserID    types.UserID    `json:"user_id"`
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
	Positions []PositionDTO   `json:"positions"`
}

// Portfolio returns a user's balance and position snapshot.
func (c *Core) Portfolio(userID types.UserID) (Portfolio, error) {
	bal, ok := c.Ledger.GetBalance(userID)
	if !ok {
		return Portfolio{}, fmt.Errorf("adapter: user %s not registered", userID)
	}
	p := Portfolio{UserID: userID, Available: bal.Available, Reserved: bal.Reserved}
	for _, pos := range c.Positions.ListForUser(userID) {
		p.Positions = append(p.Positions, PositionDTO{
			MarketID: pos.MarketID, Outcome: pos.Outcome.String(),
			Shares: pos.Shares, ReservedShares: pos.ReservedShares, AvgPrice: pos.AvgPrice,
		})
	}
	return p, nil
}

// RegisterUser opens a zero balance for a new user. Identity and auth are
// the embedder's responsibility; this call exists only so the ledger has
// a row to apply deltas against.
func (c *Core) RegisterUser(userID types.UserID) {
	c.Ledger.Register(userID)
}

// CreateMarket opens a new binary market for trading.
func (c *Core) CreateMarket(id types.MarketID, question string, now time.Time) (types.Market, error) {
	return c.Markets.Create(id, question, now)
}

package storage

import (
	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/orderbook"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// CoordinatorLogger persists order and market state transitions as they
// happen, so a restart's Recover() call has something to replay. It
// complements Store's ledger.Sink role (which already mirrors every
// balance change) by covering the two record types a coordinator event
// can also produce: orders and markets.
type CoordinatorLogger struct {
	store    *Store
	lookup   func(types.OrderID) (types.Order, bool)
	getMkt   func(types.MarketID) (types.Market, bool)
}

// NewCoordinatorLogger builds a logger that persists through store.
// orderLookup and marketLookup let it fetch the authoritative post-event
// record (the coordinator mutates orders in place, so the event payload
// alone may be stale by the time this is called).
func NewCoordinatorLogger(store *Store, orderLookup func(types.OrderID) (types.Order, bool), marketLookup func(types.MarketID) (types.Market, bool)) CoordinatorLogger {
	return CoordinatorLogger{store: store, lookup: orderLookup, getMkt: marketLookup}
}

func (c CoordinatorLogger) OnOrderPlaced(o types.Order, fills []orderbook.Fill) {
	c.persistOrder(o.ID)
	for _, f := range fills {
		c.persistOrder(f.MakerOrderID)
	}
}

func (c CoordinatorLogger) OnOrderCancelled(o types.Order) {
	c.persistOrder(o.ID)
}

func (c CoordinatorLogger) OnMarketCancelled(marketID types.MarketID, affected int) {
	c.persistMarket(marketID)
}

func (c CoordinatorLogger) OnMarketResolved(marketID types.MarketID, outcome types.Outcome, payees int, totalPayout decimal.Decimal) {
	c.persistMarket(marketID)
}

func (c CoordinatorLogger) persistOrder(id types.OrderID) {
	if c.lookup == nil {
		return
	}
	if o, ok := c.lookup(id); ok {
		c.store.SaveOrder(o)
	}
}

func (c CoordinatorLogger) persistMarket(id types.MarketID) {
	if c.getMkt == nil {
		return
	}
	if m, ok := c.getMkt(id); ok {
		c.store.SaveMarket(m)
	}
}

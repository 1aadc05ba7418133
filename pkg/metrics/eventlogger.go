package metrics

import (
	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/orderbook"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// CoordinatorLogger adapts a Collector to coordinator.EventLogger so it
// can be passed directly to Coordinator.SetLogger. It is a thin
// translation layer only: the Collector itself holds no knowledge of the
// coordinator package, keeping pkg/metrics importable independently.
type CoordinatorLogger struct {
	c *Collector
}

// NewCoordinatorLogger wraps c as an EventLogger.
func NewCoordinatorLogger(c *Collector) CoordinatorLogger {
	return CoordinatorLogger{c: c}
}

// OnOrderPlaced records the admission and every resulting fill.
func (l CoordinatorLogger) OnOrderPlaced(o types.Order, fills []orderbook.Fill) {
	l.c.RecordOrder(string(o.MarketID), o.Outcome.String(), o.Side.String())
	for _, f := range fills {
		qty := f.Quantity.Float64()
		price := f.Price.Float64()
		l.c.RecordTrade(string(o.MarketID), o.Outcome.String(), qty, qty*price)
	}
}

// OnOrderCancelled records nothing: no metric counts individual
// cancellations, and this logger does not update the OrdersActive gauge.
func (l CoordinatorLogger) OnOrderCancelled(o types.Order) {}

// OnMarketCancelled records a market-wide cancellation.
func (l CoordinatorLogger) OnMarketCancelled(marketID types.MarketID, affected int) {
	l.c.RecordMarketCancellation()
}

// OnMarketResolved records the resolution and its aggregate payout.
func (l CoordinatorLogger) OnMarketResolved(marketID types.MarketID, outcome types.Outcome, payees int, totalPayout decimal.Decimal) {
	l.c.RecordResolution(string(marketID), outcome.String(), totalPayout.Float64())
}

package util

import (
	"go.uber.org/zap"

	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/orderbook"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// EventLogger adapts a zap.SugaredLogger to coordinator.EventLogger, in
// the event_name/key/value style the teacher's consensus engine uses for
// its own Infow/Debugw calls.
type EventLogger struct {
	log *zap.SugaredLogger
}

// NewEventLogger wraps logger's sugared form as an EventLogger.
func NewEventLogger(logger *zap.Logger) EventLogger {
	return EventLogger{log: logger.Sugar()}
}

func (e EventLogger) OnOrderPlaced(o types.Order, fills []orderbook.Fill) {
	e.log.Infow("order_placed",
		"order_id", o.ID, "user_id", o.UserID, "market_id", o.MarketID,
		"outcome", o.Outcome.String(), "side", o.Side.String(),
		"price", o.Price.String(), "quantity", o.Quantity.String(),
		"status", o.Status.String(), "fills", len(fills),
	)
	for _, f := range fills {
		e.log.Infow("trade_executed",
			"market_id", o.MarketID, "taker_order_id", f.TakerOrderID,
			"maker_order_id", f.MakerOrderID, "price", f.Price.String(),
			"quantity", f.Quantity.String(),
		)
	}
}

func (e EventLogger) OnOrderCancelled(o types.Order) {
	e.log.Infow("order_cancelled",
		"order_id", o.ID, "user_id", o.UserID, "market_id", o.MarketID,
		"remaining", o.Remaining.String(),
	)
}

func (e EventLogger) OnMarketCancelled(marketID types.MarketID, affected int) {
	e.log.Infow("market_cancelled", "market_id", marketID, "orders_cancelled", affected)
}

func (e EventLogger) OnMarketResolved(marketID types.MarketID, outcome types.Outcome, payees int, totalPayout decimal.Decimal) {
	e.log.Infow("market_resolved",
		"market_id", marketID, "winning_outcome", outcome.String(),
		"payees", payees, "total_payout", totalPayout.String(),
	)
}

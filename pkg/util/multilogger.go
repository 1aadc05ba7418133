package util

import (
	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/orderbook"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// loggerLike is the coordinator.EventLogger shape, restated here so this
// package does not import coordinator; main wires both.
type loggerLike interface {
	OnOrderPlaced(types.Order, []orderbook.Fill)
	OnOrderCancelled(types.Order)
	OnMarketCancelled(types.MarketID, int)
	OnMarketResolved(types.MarketID, types.Outcome, int, decimal.Decimal)
}

// MultiLogger fans one coordinator event out to several observers (e.g.
// structured logging and Prometheus metrics) without either depending on
// the other.
type MultiLogger struct {
	loggers []loggerLike
}

// NewMultiLogger combines loggers into one.
func NewMultiLogger(loggers ...loggerLike) MultiLogger {
	return MultiLogger{loggers: loggers}
}

func (m MultiLogger) OnOrderPlaced(o types.Order, fills []orderbook.Fill) {
	for _, l := range m.loggers {
		l.OnOrderPlaced(o, fills)
	}
}

func (m MultiLogger) OnOrderCancelled(o types.Order) {
	for _, l := range m.loggers {
		l.OnOrderCancelled(o)
	}
}

func (m MultiLogger) OnMarketCancelled(marketID types.MarketID, affected int) {
	for _, l := range m.loggers {
		l.OnMarketCancelled(marketID, affected)
	}
}

func (m MultiLogger) OnMarketResolved(marketID types.MarketID, outcome types.Outcome, payees int, totalPayout decimal.Decimal) {
	for _, l := range m.loggers {
		l.OnMarketResolved(marketID, outcome, payees, totalPayout)
	}
}

package util

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/orderbook"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

func newObservedEventLogger() (EventLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewEventLogger(zap.New(core)), logs
}

func TestOnOrderPlacedLogsOrderAndEachFill(t *testing.T) {
	e, logs := newObservedEventLogger()
	o := types.Order{ID: "o1", MarketID: "m1", Outcome: types.YES, Side: types.BUY, Price: decimal.MustNew("0.5"), Quantity: decimal.MustNew("10")}
	fills := []orderbook.Fill{{TakerOrderID: "o1", MakerOrderID: "o0", Price: decimal.MustNew("0.5"), Quantity: decimal.MustNew("10")}}

	e.OnOrderPlaced(o, fills)

	if got := logs.FilterMessage("order_placed").Len(); got != 1 {
		t.Errorf("order_placed entries = %d, want 1", got)
	}
	if got := logs.FilterMessage("trade_executed").Len(); got != 1 {
		t.Errorf("trade_executed entries = %d, want 1", got)
	}
}

func TestOnMarketResolvedLogsPayout(t *testing.T) {
	e, logs := newObservedEventLogger()
	e.OnMarketResolved("m1", types.YES, 2, decimal.MustNew("20"))

	entries := logs.FilterMessage("market_resolved").All()
	if len(entries) != 1 {
		t.Fatalf("market_resolved entries = %d, want 1", len(entries))
	}
}

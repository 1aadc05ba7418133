// Command predictcore runs the trading core as a standalone process: it
// loads configuration, opens the embedded store, recovers any persisted
// markets/orders, seeds a demo market if the store is empty, and serves
// Prometheus metrics until interrupted. It carries no network-facing
// order entry point of its own (spec.md's non-goals exclude HTTP
// framing) — this binary exists to prove the core boots and stays
// consistent across a restart, the way the teacher's cmd/node proves out
// its own engine end to end.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wyvernlabs/predictcore/params"
	"github.com/wyvernlabs/predictcore/pkg/coordinator"
	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/ledger"
	"github.com/wyvernlabs/predictcore/pkg/market"
	"github.com/wyvernlabs/predictcore/pkg/metrics"
	"github.com/wyvernlabs/predictcore/pkg/position"
	"github.com/wyvernlabs/predictcore/pkg/storage"
	"github.com/wyvernlabs/predictcore/pkg/types"
	"github.com/wyvernlabs/predictcore/pkg/util"
)

func main() {
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/predictcore.log"
	}
	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	storagePath := cfg.Storage.Path
	if storagePath == "" {
		storagePath = "data/predictcore.db"
	}
	store, err := storage.Open(storagePath)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "err", err, "path", storagePath)
	}
	defer store.Close()

	markets := market.New()
	l := ledger.New()
	l.AddSink(store)
	positions := position.New()

	persistedMarkets, err := store.LoadAllMarkets()
	if err != nil {
		sugar.Fatalw("load_markets_failed", "err", err)
	}

	collector := metrics.New(prometheus.DefaultRegisterer)
	coord := coordinator.New(markets, l, positions, cfg.Market.TakerFeeRate)
	persistenceLogger := storage.NewCoordinatorLogger(store, coord.Order, func(id types.MarketID) (types.Market, bool) {
		m, err := markets.Get(id)
		return m, err == nil
	})
	coord.SetLogger(util.NewMultiLogger(
		util.NewEventLogger(logger),
		metrics.NewCoordinatorLogger(collector),
		persistenceLogger,
	))

	if len(persistedMarkets) == 0 {
		seedDemoMarket(markets, store, l, coord, sugar)
	} else {
		recoverMarkets(markets, store, coord, sugar, persistedMarkets)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, sugar)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runHeartbeat(ctx, util.RealClock{}, sugar, markets)

	sugar.Infow("predictcore_started", "storage_path", storagePath, "fee_rate", cfg.Market.TakerFeeRate.String())
	<-ctx.Done()
	sugar.Info("predictcore_shutting_down")
}

// runHeartbeat logs a periodic count of open markets, the way the teacher's cmd/node logs consensus height
// progress. It takes a util.Clock rather than calling time.After
// directly so the interval is substitutable in tests.
func runHeartbeat(ctx context.Context, clock util.Clock, sugar *zap.SugaredLogger, markets *market.Registry) {
	const interval = 30 * time.Second
	for {
		select {
		case <-ctx.Done():
			return
		case <-clock.After(interval):
			sugar.Infow("heartbeat", "open_markets", len(markets.ListOpen()), "at", clock.Now().Format(time.RFC3339))
		}
	}
}

func serveMetrics(addr string, sugar *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	sugar.Infow("metrics_server_starting", "addr", addr)
	_ = http.ListenAndServe(addr, mux)
}

func seedDemoMarket(markets *market.Registry, store *storage.Store, l *ledger.Ledger, coord *coordinator.Coordinator, sugar *zap.SugaredLogger) {
	now := time.Now()
	m, err := markets.Create("demo-market", "Will it rain tomorrow?", now)
	if err != nil {
		sugar.Infow("seed_market_skipped", "err", err.Error())
		return
	}
	if err := store.SaveMarket(m); err != nil {
		sugar.Infow("seed_market_persist_failed", "err", err.Error())
	}
	for _, user := range []types.UserID{"alice", "bob"} {
		l.Register(user)
		l.Apply(ledger.Delta{UserID: user, DeltaAvailable: decimal.MustNew("1000"), Reason: types.ReasonFaucetCredit})
	}
	if _, _, err := coord.PlaceOrder(types.OrderID(uuid.NewString()), coordinator.PlaceOrderRequest{
		UserID: "alice", MarketID: "demo-market", Outcome: types.YES, Side: types.BUY,
		Price: decimal.MustNew("0.55"), Quantity: decimal.MustNew("10"),
	}); err != nil {
		sugar.Infow("seed_order_failed", "err", err.Error())
	}
	sugar.Infow("seed_market_created", "market_id", "demo-market")
}

func recoverMarkets(markets *market.Registry, store *storage.Store, coord *coordinator.Coordinator, sugar *zap.SugaredLogger, persisted []types.Market) {
	var allOrders []types.Order
	for _, m := range persisted {
		markets.Create(m.ID, m.Question, m.CreatedAt)
		switch m.Status {
		case types.MarketResolved:
			markets.Resolve(m.ID)
		case types.MarketCancelled:
			markets.Cancel(m.ID)
		}
		orders, err := store.LoadOrdersForMarket(m.ID)
		if err != nil {
			sugar.Infow("load_orders_failed", "market_id", m.ID, "err", err.Error())
			continue
		}
		allOrders = append(allOrders, orders...)
	}
	coord.Recover(allOrders)
	sugar.Infow("recovery_complete", "markets", len(persisted), "orders", len(allOrders))
}

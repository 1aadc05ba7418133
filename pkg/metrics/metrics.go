// Package metrics exposes the trading core's Prometheus metrics (C9):
// order throughput, fill counts, settlement volume, and book depth.
// Grounded on VictorVVedtion-perp-dex's metrics/prometheus.go (the
// Collector-struct-of-vecs pattern, registerAll, RecordX helpers), but
// scoped down to the events this core actually emits — no funding,
// liquidation, or websocket metrics, since those concerns don't exist
// here (spec.md's non-goals exclude margin/perp mechanics entirely).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the trading core emits.
type Collector struct {
	OrdersTotal       *prometheus.CounterVec
	OrdersActive      *prometheus.GaugeVec
	OrderLatency      *prometheus.HistogramVec
	OrderReservations *prometheus.CounterVec

	TradesTotal *prometheus.CounterVec
	TradeVolume *prometheus.CounterVec
	TradeValue  *prometheus.CounterVec

	OrderbookDepth *prometheus.GaugeVec
	SpreadBps      *prometheus.GaugeVec

	SettlementPayouts *prometheus.CounterVec
	MarketsResolved   *prometheus.CounterVec
	MarketsCancelled  *prometheus.CounterVec
}

// New builds and registers a fresh Collector against reg. Tests and
// multiple coordinator instances in the same process should each pass
// their own prometheus.NewRegistry() to avoid duplicate-registration
// panics; the default production wiring uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predictcore", Subsystem: "orders", Name: "total",
			Help: "Total number of orders submitted",
		}, []string{"market_id", "outcome", "side"}),

		OrdersActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "predictcore", Subsystem: "orders", Name: "active",
			Help: "Number of currently resting orders",
		}, []string{"market_id", "outcome", "side"}),

		OrderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "predictcore", Subsystem: "orders", Name: "latency_ms",
			Help:    "Time to admit and match a single order, in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		}, []string{"market_id"}),

		OrderReservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predictcore", Subsystem: "orders", Name: "reservation_failures_total",
			Help: "Orders rejected for insufficient funds or shares",
		}, []string{"market_id", "side"}),

		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predictcore", Subsystem: "trades", Name: "total",
			Help: "Total number of fills executed",
		}, []string{"market_id", "outcome"}),

		TradeVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predictcore", Subsystem: "trades", Name: "volume_shares",
			Help: "Total traded quantity, in shares",
		}, []string{"market_id", "outcome"}),

		TradeValue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predictcore", Subsystem: "trades", Name: "value",
			Help: "Total traded notional value",
		}, []string{"market_id", "outcome"}),

		OrderbookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "predictcore", Subsystem: "orderbook", Name: "depth",
			Help: "Number of distinct price levels",
		}, []string{"market_id", "outcome", "side"}),

		SpreadBps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "predictcore", Subsystem: "orderbook", Name: "spread_bps",
			Help: "Best-ask minus best-bid, in basis points of the midpoint",
		}, []string{"market_id", "outcome"}),

		SettlementPayouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predictcore", Subsystem: "settlement", Name: "payouts_total",
			Help: "Total cash paid out on market resolution",
		}, []string{"market_id"}),

		MarketsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predictcore", Subsystem: "markets", Name: "resolved_total",
			Help: "Total markets resolved",
		}, []string{"winning_outcome"}),

		MarketsCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predictcore", Subsystem: "markets", Name: "cancelled_total",
			Help: "Total markets cancelled outright",
		}, []string{}),
	}
	c.registerAll(reg)
	return c
}

func (c *Collector) registerAll(reg prometheus.Registerer) {
	reg.MustRegister(
		c.OrdersTotal, c.OrdersActive, c.OrderLatency, c.OrderReservations,
		c.TradesTotal, c.TradeVolume, c.TradeValue,
		c.OrderbookDepth, c.SpreadBps,
		c.SettlementPayouts, c.MarketsResolved, c.MarketsCancelled,
	)
}

// RecordOrder increments the order counter for one submission.
func (c *Collector) RecordOrder(marketID, outcome, side string) {
	c.OrdersTotal.WithLabelValues(marketID, outcome, side).Inc()
}

// RecordOrderLatency observes how long admission+matching took.
func (c *Collector) RecordOrderLatency(marketID string, latencyMs float64) {
	c.OrderLatency.WithLabelValues(marketID).Observe(latencyMs)
}

// RecordReservationFailure increments the rejection counter.
func (c *Collector) RecordReservationFailure(marketID, side string) {
	c.OrderReservations.WithLabelValues(marketID, side).Inc()
}

// RecordTrade records one fill's volume and notional.
func (c *Collector) RecordTrade(marketID, outcome string, qty, value float64) {
	c.TradesTotal.WithLabelValues(marketID, outcome).Inc()
	c.TradeVolume.WithLabelValues(marketID, outcome).Add(qty)
	c.TradeValue.WithLabelValues(marketID, outcome).Add(value)
}

// SetOrderbookDepth sets the current number of price levels on one side.
func (c *Collector) SetOrderbookDepth(marketID, outcome, side string, levels int) {
	c.OrderbookDepth.WithLabelValues(marketID, outcome, side).Set(float64(levels))
}

// RecordResolution increments the resolved-markets counter and the
// cumulative payout counter.
func (c *Collector) RecordResolution(marketID, winningOutcome string, payout float64) {
	c.MarketsResolved.WithLabelValues(winningOutcome).Inc()
	c.SettlementPayouts.WithLabelValues(marketID).Add(payout)
}

// RecordMarketCancellation increments the cancelled-markets counter.
func (c *Collector) RecordMarketCancellation() {
	c.MarketsCancelled.WithLabelValues().Inc()
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed wall-clock time for a latency observation.
type Timer struct{ start time.Time }

// NewTimer starts a timer.
func NewTimer() Timer { return Timer{start: time.Now()} }

// ElapsedMs returns the elapsed time in milliseconds.
func (t Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}

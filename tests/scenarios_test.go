// Package tests exercises the trading core end to end through the
// coordinator, the way a caller embedding this core would: no internal
// package gets special access. Each test below reproduces one of the
// core's canonical worked examples at its literal expected values.
package tests

import (
	"testing"
	"time"

	"github.com/wyvernlabs/predictcore/pkg/coordinator"
	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/ledger"
	"github.com/wyvernlabs/predictcore/pkg/market"
	"github.com/wyvernlabs/predictcore/pkg/position"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

const feeRate = "0.01"

type harness struct {
	coord     *coordinator.Coordinator
	ledger    *ledger.Ledger
	positions *position.Store
	markets   *market.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	markets := market.New()
	if _, err := markets.Create("M", "Will it rain?", time.Now()); err != nil {
		t.Fatalf("create market: %v", err)
	}
	l := ledger.New()
	positions := position.New()
	coord := coordinator.New(markets, l, positions, decimal.MustNew(feeRate))
	return &harness{coord: coord, ledger: l, positions: positions, markets: markets}
}

func (h *harness) fund(userID types.UserID, amount string) {
	h.ledger.Register(userID)
	h.ledger.Apply(ledger.Delta{UserID: userID, DeltaAvailable: decimal.MustNew(amount), Reason: types.ReasonFaucetCredit})
}

func (h *harness) seedShares(userID types.UserID, outcome types.Outcome, qty, avgPrice string) {
	h.ledger.Register(userID)
	if err := h.positions.Add(position.Key{UserID: userID, MarketID: "M", Outcome: outcome}, decimal.MustNew(qty), decimal.MustNew(avgPrice)); err != nil {
		panic(err)
	}
}

func (h *harness) balance(t *testing.T, userID types.UserID) ledger.Balance {
	t.Helper()
	bal, ok := h.ledger.GetBalance(userID)
	if !ok {
		t.Fatalf("no balance for %s", userID)
	}
	return bal
}

func assertDecimal(t *testing.T, label string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", label, got, want)
	}
}

// S1 — simple cross at maker price.
func TestS1SimpleCrossAtMakerPrice(t *testing.T) {
	h := newHarness(t)
	h.fund("A", "1000")
	h.seedShares("B", types.YES, "100", "0.50")

	if _, _, err := h.coord.PlaceOrder("b-sell", coordinator.PlaceOrderRequest{
		UserID: "B", MarketID: "M", Outcome: types.YES, Side: types.SELL,
		Price: decimal.MustNew("0.55"), Quantity: decimal.MustNew("50"),
	}); err != nil {
		t.Fatalf("B sell: %v", err)
	}

	_, fills, err := h.coord.PlaceOrder("a-buy", coordinator.PlaceOrderRequest{
		UserID: "A", MarketID: "M", Outcome: types.YES, Side: types.BUY,
		Price: decimal.MustNew("0.60"), Quantity: decimal.MustNew("50"),
	})
	if err != nil {
		t.Fatalf("A buy: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}
	assertDecimal(t, "fill price", fills[0].Price, decimal.MustNew("0.55"))
	assertDecimal(t, "fill qty", fills[0].Quantity, decimal.MustNew("50"))

	aBal := h.balance(t, "A")
	assertDecimal(t, "A available", aBal.Available, decimal.MustNew("972.225"))
	assertDecimal(t, "A reserved", aBal.Reserved, decimal.Zero)

	bBal := h.balance(t, "B")
	assertDecimal(t, "B available", bBal.Available, decimal.MustNew("27.50"))

	sysBal := h.balance(t, types.SystemAccountID)
	assertDecimal(t, "SYSTEM available", sysBal.Available, decimal.MustNew("0.275"))

	aPos := h.positions.Get(position.Key{UserID: "A", MarketID: "M", Outcome: types.YES})
	assertDecimal(t, "A shares", aPos.Shares, decimal.MustNew("50"))
	assertDecimal(t, "A avg price", aPos.AvgPrice, decimal.MustNew("0.55"))

	bPos := h.positions.Get(position.Key{UserID: "B", MarketID: "M", Outcome: types.YES})
	assertDecimal(t, "B shares", bPos.Shares, decimal.MustNew("50"))
	assertDecimal(t, "B reservedShares", bPos.ReservedShares, decimal.Zero)
}

// S2 — partial fill with residual.
func TestS2PartialFillWithResidual(t *testing.T) {
	h := newHarness(t)
	h.fund("A", "1000")
	h.fund("B", "1000")
	h.seedShares("B", types.YES, "40", "0.50")

	a, _, err := h.coord.PlaceOrder("a-buy", coordinator.PlaceOrderRequest{
		UserID: "A", MarketID: "M", Outcome: types.YES, Side: types.BUY,
		Price: decimal.MustNew("0.60"), Quantity: decimal.MustNew("100"),
	})
	if err != nil {
		t.Fatalf("A buy: %v", err)
	}
	if a.Status != types.OrderOpen {
		t.Fatalf("A status before any seller = %s, want OPEN", a.Status)
	}

	_, fills, err := h.coord.PlaceOrder("b-sell", coordinator.PlaceOrderRequest{
		UserID: "B", MarketID: "M", Outcome: types.YES, Side: types.SELL,
		Price: decimal.MustNew("0.55"), Quantity: decimal.MustNew("40"),
	})
	if err != nil {
		t.Fatalf("B sell: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}
	assertDecimal(t, "fill qty", fills[0].Quantity, decimal.MustNew("40"))
	assertDecimal(t, "fill price", fills[0].Price, decimal.MustNew("0.60"))

	aAfter, ok := h.coord.Order("a-buy")
	if !ok {
		t.Fatal("A order missing from index")
	}
	if aAfter.Status != types.OrderPartial {
		t.Errorf("A status = %s, want PARTIAL", aAfter.Status)
	}
	assertDecimal(t, "A remaining", aAfter.Remaining, decimal.MustNew("60"))

	bAfter, ok := h.coord.Order("b-sell")
	if !ok {
		t.Fatal("B order missing from index")
	}
	if bAfter.Status != types.OrderFilled {
		t.Errorf("B status = %s, want FILLED", bAfter.Status)
	}
}

// S3 — multi-level sweep.
func TestS3MultiLevelSweep(t *testing.T) {
	h := newHarness(t)
	h.fund("Taker", "1000")
	h.seedShares("S1", types.YES, "30", "0.50")
	h.seedShares("S2", types.YES, "30", "0.50")
	h.seedShares("S3", types.YES, "50", "0.50")

	place := func(id types.OrderID, userID types.UserID, price, qty string) {
		if _, _, err := h.coord.PlaceOrder(id, coordinator.PlaceOrderRequest{
			UserID: userID, MarketID: "M", Outcome: types.YES, Side: types.SELL,
			Price: decimal.MustNew(price), Quantity: decimal.MustNew(qty),
		}); err != nil {
			t.Fatalf("place %s: %v", id, err)
		}
	}
	place("s1-ask", "S1", "0.50", "30")
	place("s2-ask", "S2", "0.50", "30")
	place("s3-ask", "S3", "0.60", "50")

	_, fills, err := h.coord.PlaceOrder("taker-buy", coordinator.PlaceOrderRequest{
		UserID: "Taker", MarketID: "M", Outcome: types.YES, Side: types.BUY,
		Price: decimal.MustNew("0.60"), Quantity: decimal.MustNew("100"),
	})
	if err != nil {
		t.Fatalf("taker buy: %v", err)
	}
	if len(fills) != 3 {
		t.Fatalf("got %d fills, want 3", len(fills))
	}

	wantPrices := []string{"0.50", "0.50", "0.60"}
	wantQtys := []string{"30", "30", "40"}
	wantMakers := []types.OrderID{"s1-ask", "s2-ask", "s3-ask"}
	for i, f := range fills {
		assertDecimal(t, "fill price", f.Price, decimal.MustNew(wantPrices[i]))
		assertDecimal(t, "fill qty", f.Quantity, decimal.MustNew(wantQtys[i]))
		if f.MakerOrderID != wantMakers[i] {
			t.Errorf("fill %d maker = %s, want %s", i, f.MakerOrderID, wantMakers[i])
		}
	}

	s3After, ok := h.coord.Order("s3-ask")
	if !ok {
		t.Fatal("S3 order missing")
	}
	if s3After.Status != types.OrderPartial {
		t.Errorf("S3 status = %s, want PARTIAL", s3After.Status)
	}
	assertDecimal(t, "S3 remaining", s3After.Remaining, decimal.MustNew("10"))
}

// S4 — resolution payout.
func TestS4ResolutionPayout(t *testing.T) {
	h := newHarness(t)
	h.fund("Alice", "0")
	h.fund("Bob", "0")
	h.seedShares("Alice", types.YES, "100", "0.40")
	h.seedShares("Bob", types.NO, "50", "0.60")

	if err := h.coord.ResolveMarket("M", types.YES); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	aliceBal := h.balance(t, "Alice")
	assertDecimal(t, "Alice available", aliceBal.Available, decimal.MustNew("100"))

	bobBal := h.balance(t, "Bob")
	assertDecimal(t, "Bob available", bobBal.Available, decimal.Zero)

	alicePos := h.positions.Get(position.Key{UserID: "Alice", MarketID: "M", Outcome: types.YES})
	if !alicePos.Shares.IsZero() {
		t.Errorf("Alice shares after resolution = %s, want 0", alicePos.Shares)
	}
	bobPos := h.positions.Get(position.Key{UserID: "Bob", MarketID: "M", Outcome: types.NO})
	if !bobPos.Shares.IsZero() {
		t.Errorf("Bob shares after resolution = %s, want 0", bobPos.Shares)
	}

	m, err := h.markets.Get("M")
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if m.Status != types.MarketResolved {
		t.Errorf("market status = %s, want RESOLVED", m.Status)
	}
}

// S5 — cancel returns reservation exactly.
func TestS5CancelReturnsReservationExactly(t *testing.T) {
	h := newHarness(t)
	h.fund("A", "1000")

	if _, _, err := h.coord.PlaceOrder("a-buy", coordinator.PlaceOrderRequest{
		UserID: "A", MarketID: "M", Outcome: types.YES, Side: types.BUY,
		Price: decimal.MustNew("0.30"), Quantity: decimal.MustNew("100"),
	}); err != nil {
		t.Fatalf("place: %v", err)
	}

	before := h.balance(t, "A")
	assertDecimal(t, "A reserved before cancel", before.Reserved, decimal.MustNew("30.30"))

	if _, err := h.coord.CancelOrder("a-buy"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	after := h.balance(t, "A")
	assertDecimal(t, "A available after cancel", after.Available, decimal.MustNew("1000"))
	assertDecimal(t, "A reserved after cancel", after.Reserved, decimal.Zero)

	o, ok := h.coord.Order("a-buy")
	if !ok {
		t.Fatal("order missing")
	}
	if o.Status != types.OrderCancelled {
		t.Errorf("status = %s, want CANCELLED", o.Status)
	}
}

// S6 — market cancel refunds both sides.
func TestS6MarketCancelRefundsBothSides(t *testing.T) {
	h := newHarness(t)
	h.fund("Alice", "1000")
	h.seedShares("Bob", types.YES, "40", "0.50")

	if _, _, err := h.coord.PlaceOrder("alice-buy", coordinator.PlaceOrderRequest{
		UserID: "Alice", MarketID: "M", Outcome: types.YES, Side: types.BUY,
		Price: decimal.MustNew("0.30"), Quantity: decimal.MustNew("100"),
	}); err != nil {
		t.Fatalf("alice buy: %v", err)
	}
	if _, _, err := h.coord.PlaceOrder("bob-sell", coordinator.PlaceOrderRequest{
		UserID: "Bob", MarketID: "M", Outcome: types.YES, Side: types.SELL,
		Price: decimal.MustNew("0.70"), Quantity: decimal.MustNew("40"),
	}); err != nil {
		t.Fatalf("bob sell: %v", err)
	}

	bobPosBefore := h.positions.Get(position.Key{UserID: "Bob", MarketID: "M", Outcome: types.YES})
	assertDecimal(t, "Bob reservedShares before cancel", bobPosBefore.ReservedShares, decimal.MustNew("40"))

	if err := h.coord.CancelMarket("M"); err != nil {
		t.Fatalf("cancel market: %v", err)
	}

	aliceBal := h.balance(t, "Alice")
	assertDecimal(t, "Alice available after market cancel", aliceBal.Available, decimal.MustNew("1000"))
	assertDecimal(t, "Alice reserved after market cancel", aliceBal.Reserved, decimal.Zero)

	bobPos := h.positions.Get(position.Key{UserID: "Bob", MarketID: "M", Outcome: types.YES})
	assertDecimal(t, "Bob shares unchanged", bobPos.Shares, decimal.MustNew("40"))
	assertDecimal(t, "Bob reservedShares after cancel", bobPos.ReservedShares, decimal.Zero)

	for _, id := range []types.OrderID{"alice-buy", "bob-sell"} {
		o, ok := h.coord.Order(id)
		if !ok {
			t.Fatalf("order %s missing", id)
		}
		if o.Status != types.OrderCancelled {
			t.Errorf("order %s status = %s, want CANCELLED", id, o.Status)
		}
	}

	m, err := h.markets.Get("M")
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if m.Status != types.MarketCancelled {
		t.Errorf("market status = %s, want CANCELLED", m.Status)
	}
}

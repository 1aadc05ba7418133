package orderbook

import (
	"testing"
	"time"

	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

func newOrder(id types.OrderID, user types.UserID, side types.Side, price, qty string, seq uint64) *types.Order {
	return &types.Order{
		ID:        id,
		UserID:    user,
		MarketID:  "m1",
		Outcome:   types.YES,
		Side:      side,
		Price:     decimal.MustNew(price),
		Quantity:  decimal.MustNew(qty),
		Remaining: decimal.MustNew(qty),
		Status:    types.OrderOpen,
		CreatedAt: time.Unix(0, int64(seq)),
		Seq:       seq,
	}
}

// S1: a resting ask at 0.55 crosses with an incoming buy at 0.55; the
// trade prints at the maker's price.
func TestPlaceSimpleCrossExecutesAtMakerPrice(t *testing.T) {
	b := New("m1", types.YES)
	maker := newOrder("ask1", "alice", types.SELL, "0.55", "50", 1)
	b.Place(maker)

	taker := newOrder("bid1", "bob", types.BUY, "0.55", "50", 2)
	fills := b.Place(taker)

	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}
	f := fills[0]
	if !f.Price.Equal(decimal.MustNew("0.55")) {
		t.Errorf("fill price = %s, want 0.55 (maker price)", f.Price)
	}
	if !f.Quantity.Equal(decimal.MustNew("50")) {
		t.Errorf("fill qty = %s, want 50", f.Quantity)
	}
	if taker.Status != types.OrderFilled {
		t.Errorf("taker status = %v, want Filled", taker.Status)
	}
	if maker.Status != types.OrderFilled {
		t.Errorf("maker status = %v, want Filled", maker.Status)
	}
}

func TestPlacePartialFillRestsResidual(t *testing.T) {
	b := New("m1", types.YES)
	maker := newOrder("ask1", "alice", types.SELL, "0.55", "30", 1)
	b.Place(maker)

	taker := newOrder("bid1", "bob", types.BUY, "0.55", "50", 2)
	fills := b.Place(taker)

	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}
	if !fills[0].Quantity.Equal(decimal.MustNew("30")) {
		t.Errorf("fill qty = %s, want 30", fills[0].Quantity)
	}
	if taker.Status != types.OrderPartial {
		t.Errorf("taker status = %v, want Partial", taker.Status)
	}
	if !taker.Remaining.Equal(decimal.MustNew("20")) {
		t.Errorf("taker remaining = %s, want 20", taker.Remaining)
	}

	bid, ok := b.BestBid()
	if !ok || !bid.Equal(decimal.MustNew("0.55")) {
		t.Errorf("expected residual 20 resting at 0.55 as best bid, got %s (ok=%v)", bid, ok)
	}
}

func TestPlaceSweepsMultiplePriceLevelsInPriorityOrder(t *testing.T) {
	b := New("m1", types.YES)
	// Two ask levels: 0.50 (20 shares) and 0.55 (40 shares). A buy at 0.60
	// for 50 shares should take all of the cheaper level first.
	b.Place(newOrder("ask1", "alice", types.SELL, "0.50", "20", 1))
	b.Place(newOrder("ask2", "carol", types.SELL, "0.55", "40", 2))

	taker := newOrder("bid1", "bob", types.BUY, "0.60", "50", 3)
	fills := b.Place(taker)

	if len(fills) != 2 {
		t.Fatalf("got %d fills, want 2", len(fills))
	}
	if !fills[0].Price.Equal(decimal.MustNew("0.50")) || !fills[0].Quantity.Equal(decimal.MustNew("20")) {
		t.Errorf("first fill = %+v, want price 0.50 qty 20", fills[0])
	}
	if !fills[1].Price.Equal(decimal.MustNew("0.55")) || !fills[1].Quantity.Equal(decimal.MustNew("30")) {
		t.Errorf("second fill = %+v, want price 0.55 qty 30", fills[1])
	}
	if taker.Status != types.OrderFilled {
		t.Errorf("taker status = %v, want Filled", taker.Status)
	}
}

func TestPlaceRespectsTimePriorityWithinLevel(t *testing.T) {
	b := New("m1", types.YES)
	first := newOrder("ask1", "alice", types.SELL, "0.50", "10", 1)
	second := newOrder("ask2", "carol", types.SELL, "0.50", "10", 2)
	b.Place(first)
	b.Place(second)

	taker := newOrder("bid1", "bob", types.BUY, "0.50", "10", 3)
	fills := b.Place(taker)

	if len(fills) != 1 || fills[0].MakerOrderID != "ask1" {
		t.Fatalf("expected the earlier resting order to fill first, got %+v", fills)
	}
}

func TestPlaceNonCrossingOrderRestsWithoutFill(t *testing.T) {
	b := New("m1", types.YES)
	b.Place(newOrder("ask1", "alice", types.SELL, "0.60", "10", 1))

	taker := newOrder("bid1", "bob", types.BUY, "0.55", "10", 2)
	fills := b.Place(taker)

	if len(fills) != 0 {
		t.Fatalf("expected no fills, got %d", len(fills))
	}
	if taker.Status != types.OrderOpen {
		t.Errorf("taker status = %v, want Open", taker.Status)
	}
}

func TestCancelRemovesRestingOrderAndLevel(t *testing.T) {
	b := New("m1", types.YES)
	b.Place(newOrder("ask1", "alice", types.SELL, "0.60", "10", 1))

	removed, ok := b.Cancel("ask1")
	if !ok {
		t.Fatal("expected cancel to find the order")
	}
	if removed.Status != types.OrderCancelled {
		t.Errorf("status = %v, want Cancelled", removed.Status)
	}
	if _, ok := b.BestAsk(); ok {
		t.Error("expected no remaining ask levels after cancel")
	}
}

func TestCancelUnknownOrderReturnsFalse(t *testing.T) {
	b := New("m1", types.YES)
	if _, ok := b.Cancel("nope"); ok {
		t.Fatal("expected cancel of unknown order to fail")
	}
}

func TestMidpointIsExactHalfOfBidAskSum(t *testing.T) {
	b := New("m1", types.YES)
	b.Place(newOrder("bid1", "bob", types.BUY, "0.55", "10", 1))
	b.Place(newOrder("ask1", "alice", types.SELL, "0.65", "10", 2))

	mid, ok := b.Midpoint()
	if !ok {
		t.Fatal("expected a midpoint with both sides populated")
	}
	if !mid.Equal(decimal.MustNew("0.6")) {
		t.Errorf("midpoint = %s, want 0.6", mid)
	}
}

func TestMidpointAbsentWhenOneSideEmpty(t *testing.T) {
	b := New("m1", types.YES)
	b.Place(newOrder("bid1", "bob", types.BUY, "0.55", "10", 1))
	if _, ok := b.Midpoint(); ok {
		t.Error("expected no midpoint with only one side populated")
	}
}

func TestClearAllCancelsEveryRestingOrder(t *testing.T) {
	b := New("m1", types.YES)
	b.Place(newOrder("bid1", "bob", types.BUY, "0.40", "10", 1))
	b.Place(newOrder("ask1", "alice", types.SELL, "0.60", "10", 2))

	removed := b.ClearAll()
	if len(removed) != 2 {
		t.Fatalf("got %d removed orders, want 2", len(removed))
	}
	for _, o := range removed {
		if o.Status != types.OrderCancelled {
			t.Errorf("order %s status = %v, want Cancelled", o.ID, o.Status)
		}
	}
	bidLevels, askLevels := b.Depth()
	if bidLevels != 0 || askLevels != 0 {
		t.Errorf("expected empty book after ClearAll, got %d bid levels, %d ask levels", bidLevels, askLevels)
	}
}

func TestBidLevelsOrderedBestFirst(t *testing.T) {
	b := New("m1", types.YES)
	b.Place(newOrder("bid1", "bob", types.BUY, "0.40", "10", 1))
	b.Place(newOrder("bid2", "carol", types.BUY, "0.60", "10", 2))
	b.Place(newOrder("bid3", "dave", types.BUY, "0.50", "10", 3))

	levels := b.BidLevels(0)
	if len(levels) != 3 {
		t.Fatalf("got %d levels, want 3", len(levels))
	}
	if !levels[0].Price.Equal(decimal.MustNew("0.60")) {
		t.Errorf("best bid level = %s, want 0.60", levels[0].Price)
	}
	if !levels[2].Price.Equal(decimal.MustNew("0.40")) {
		t.Errorf("worst bid level = %s, want 0.40", levels[2].Price)
	}
}

func TestSelfTradeGuardSkipsOwnRestingOrder(t *testing.T) {
	b := New("m1", types.YES)
	b.SetSelfTradeGuard(true)

	b.Place(newOrder("ask1", "alice", types.SELL, "0.55", "50", 1))
	fills := b.Place(newOrder("bid1", "alice", types.BUY, "0.55", "50", 2))

	if len(fills) != 0 {
		t.Fatalf("got %d fills, want 0 (self-trade should be blocked)", len(fills))
	}
	bidLevels := b.BidLevels(0)
	if len(bidLevels) != 1 {
		t.Fatalf("expected alice's buy to rest instead of matching, got %d bid levels", len(bidLevels))
	}
}

func TestSelfTradeGuardStillMatchesAgainstOtherUsers(t *testing.T) {
	b := New("m1", types.YES)
	b.SetSelfTradeGuard(true)

	b.Place(newOrder("ask1", "alice", types.SELL, "0.55", "50", 1))
	fills := b.Place(newOrder("bid1", "bob", types.BUY, "0.55", "50", 2))

	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1 (different users should still match)", len(fills))
	}
}

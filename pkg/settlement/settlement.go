// Package settlement computes the ledger and position deltas for every
// trading event as pure functions, per spec.md §4.5 (C5). Nothing here
// touches a mutex or a store: each Plan* function takes a snapshot of
// the inputs it needs and returns a Plan describing what the coordinator
// (C6) must apply atomically. Keeping this pure is what makes the
// arithmetic testable without any concurrency concerns, in the same
// spirit as the teacher's core package keeping match logic free of
// consensus/network code.
package settlement

import (
	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/ledger"
	"github.com/wyvernlabs/predictcore/pkg/orderbook"
	"github.com/wyvernlabs/predictcore/pkg/position"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// PositionOp names the position-store operation a PositionDelta asks the
// coordinator to apply.
type PositionOp int

const (
	PosReserve PositionOp = iota
	PosRelease
	PosConsumeReserved
	PosAdd
	PosClear
)

// PositionDelta describes one position-store mutation.
type PositionDelta struct {
	Key   position.Key
	Op    PositionOp
	Qty   decimal.Decimal
	Price decimal.Decimal // only meaningful for PosAdd
}

// OrderStateChange describes an order row that must be persisted with a
// new status/remaining after this event.
type OrderStateChange struct {
	OrderID   types.OrderID
	Status    types.OrderStatus
	Remaining decimal.Decimal
}

// Plan is everything one trading event must apply atomically.
type Plan struct {
	LedgerDeltas      []ledger.Delta
	PositionDeltas    []PositionDelta
	OrderStateChanges []OrderStateChange
}

func (p *Plan) addLedger(d ledger.Delta)       { p.LedgerDeltas = append(p.LedgerDeltas, d) }
func (p *Plan) addPosition(d PositionDelta)    { p.PositionDeltas = append(p.PositionDeltas, d) }
func (p *Plan) addOrder(c OrderStateChange)    { p.OrderStateChanges = append(p.OrderStateChanges, c) }

// cost returns price * qty, the cash notional of a BUY order.
func cost(price, qty decimal.Decimal) decimal.Decimal {
	return price.Mul(qty)
}

// PlanOrderReserve computes the reservation a newly admitted order must
// place before it can rest or match: a BUY reserves cash (order notional
// plus the taker-side fee budgeted against the worst case that the whole
// order fills as taker), a SELL reserves shares.
//
// feeRate is applied to the cash side only; spec.md §4.5 charges no fee
// on the share side since a SELL never pays in shares beyond what it
// sells.
func PlanOrderReserve(o *types.Order, feeRate decimal.Decimal) Plan {
	var plan Plan
	switch o.Side {
	case types.BUY:
		notional := cost(o.Price, o.Quantity)
		fee := notional.Mul(feeRate)
		reserveAmount := notional.Add(fee)
		plan.addLedger(ledger.Delta{
			UserID:         o.UserID,
			DeltaAvailable: reserveAmount.Neg(),
			DeltaReserved:  reserveAmount,
			Reason:         types.ReasonOrderReserve,
			RefType:        types.RefOrder,
			RefID:          string(o.ID),
		})
	case types.SELL:
		plan.addPosition(PositionDelta{
			Key: position.Key{UserID: o.UserID, MarketID: o.MarketID, Outcome: o.Outcome},
			Op:  PosReserve,
			Qty: o.Quantity,
		})
	}
	return plan
}

// reservedAmountForRemaining mirrors the reservation formula in
// PlanOrderReserve, scoped to whatever quantity is being released rather
// than the order's original quantity.
func reservedAmountForRemaining(o *types.Order, qty, feeRate decimal.Decimal) decimal.Decimal {
	notional := cost(o.Price, qty)
	fee := notional.Mul(feeRate)
	return notional.Add(fee)
}

// PlanOrderCancel releases whatever portion of an order's reservation is
// still outstanding (o.Remaining) and marks the order CANCELLED.
func PlanOrderCancel(o *types.Order, feeRate decimal.Decimal) Plan {
	var plan Plan
	switch o.Side {
	case types.BUY:
		amount := reservedAmountForRemaining(o, o.Remaining, feeRate)
		if amount.IsPositive() {
			plan.addLedger(ledger.Delta{
				UserID:         o.UserID,
				DeltaAvailable: amount,
				DeltaReserved:  amount.Neg(),
				Reason:         types.ReasonOrderReserveRelease,
				RefType:        types.RefOrder,
				RefID:          string(o.ID),
			})
		}
	case types.SELL:
		if o.Remaining.IsPositive() {
			plan.addPosition(PositionDelta{
				Key: position.Key{UserID: o.UserID, MarketID: o.MarketID, Outcome: o.Outcome},
				Op:  PosRelease,
				Qty: o.Remaining,
			})
		}
	}
	plan.addOrder(OrderStateChange{OrderID: o.ID, Status: types.OrderCancelled, Remaining: o.Remaining})
	return plan
}

// PlanTrade computes the ledger and position deltas for a single fill:
// the buyer pays the maker price times quantity, the seller receives
// that notional, whichever side is the taker pays a fee on it to SYSTEM,
// and shares move from the seller's reservation into the buyer's
// position.
func PlanTrade(fill orderbook.Fill, taker, maker *types.Order, feeRate decimal.Decimal) Plan {
	var plan Plan

	notional := cost(fill.Price, fill.Quantity)
	buyerID, sellerID := buyerSeller(taker, maker)
	buyerOrder, sellerOrder := buyerSellerOrders(taker, maker)

	// Fee is charged to whichever side is acting as taker, on the actual
	// traded notional (not the taker's original reserved notional).
	takerIsBuyer := taker.Side == types.BUY
	fee := notional.Mul(feeRate)

	// A BUY order pre-reserves notional+fee against its own limit price
	// at placement time (PlanOrderReserve), before it's known whether it
	// will end up acting as maker or taker on any given fill. Settling a
	// fill always releases the buyer's reservation for the matched
	// quantity in full; the fee only actually leaves the buyer's funds
	// (to SYSTEM) when the buyer is this fill's taker. When the buyer is
	// the maker, the fee portion it pre-reserved is refunded back to
	// available instead, and the seller — acting as taker — pays the fee
	// out of trade proceeds.
	buyerOrderForFill := maker
	if takerIsBuyer {
		buyerOrderForFill = taker
	}
	reservedForFill := reservedAmountForRemaining(buyerOrderForFill, fill.Quantity, feeRate)

	// When the buyer is this fill's taker, her reservation was sized
	// against her own limit price at admission time. If price-time
	// priority matched her against a better-priced (cheaper) maker, the
	// difference between what she reserved and what the trade actually
	// costs her (notional+fee at the maker's price) must come back to
	// available rather than vanish. When the buyer is the maker, the fill
	// always executes at her own resting price, so reservedForFill already
	// equals notional+fee exactly and there is no surplus here — her fee
	// refund is the separate entry below.
	buyerSurplus := decimal.Zero
	if takerIsBuyer {
		buyerSurplus = reservedForFill.Sub(notional).Sub(fee)
	}
	plan.addLedger(ledger.Delta{UserID: buyerID, DeltaAvailable: buyerSurplus, DeltaReserved: reservedForFill.Neg(), Reason: types.ReasonTradeBuy, RefType: types.RefTrade, RefID: string(buyerOrderForFill.ID)})

	if takerIsBuyer {
		plan.addLedger(ledger.Delta{UserID: sellerID, DeltaAvailable: notional, Reason: types.ReasonTradeSell, RefType: types.RefTrade, RefID: string(maker.ID)})
		plan.addLedger(ledger.Delta{UserID: types.SystemAccountID, DeltaAvailable: fee, Reason: types.ReasonTradeFee, RefType: types.RefTrade, RefID: string(taker.ID)})
	} else {
		plan.addLedger(ledger.Delta{UserID: buyerID, DeltaAvailable: fee, Reason: types.ReasonTradeFee, RefType: types.RefTrade, RefID: string(maker.ID)})
		plan.addLedger(ledger.Delta{UserID: sellerID, DeltaAvailable: notional, Reason: types.ReasonTradeSell, RefType: types.RefTrade, RefID: string(taker.ID)})
		plan.addLedger(ledger.Delta{UserID: sellerID, DeltaAvailable: fee.Neg(), Reason: types.ReasonTradeFee, RefType: types.RefTrade, RefID: string(taker.ID)})
		plan.addLedger(ledger.Delta{UserID: types.SystemAccountID, DeltaAvailable: fee, Reason: types.ReasonTradeFee, RefType: types.RefTrade, RefID: string(taker.ID)})
	}

	plan.addPosition(PositionDelta{
		Key:   position.Key{UserID: buyerID, MarketID: buyerOrder.MarketID, Outcome: buyerOrder.Outcome},
		Op:    PosAdd,
		Qty:   fill.Quantity,
		Price: fill.Price,
	})
	plan.addPosition(PositionDelta{
		Key: position.Key{UserID: sellerID, MarketID: sellerOrder.MarketID, Outcome: sellerOrder.Outcome},
		Op:  PosConsumeReserved,
		Qty: fill.Quantity,
	})

	plan.addOrder(OrderStateChange{OrderID: taker.ID, Status: taker.Status, Remaining: taker.Remaining})
	plan.addOrder(OrderStateChange{OrderID: maker.ID, Status: maker.Status, Remaining: maker.Remaining})

	return plan
}

func buyerSeller(taker, maker *types.Order) (buyer, seller types.UserID) {
	if taker.Side == types.BUY {
		return taker.UserID, maker.UserID
	}
	return maker.UserID, taker.UserID
}

func buyerSellerOrders(taker, maker *types.Order) (buyer, seller *types.Order) {
	if taker.Side == types.BUY {
		return taker, maker
	}
	return maker, taker
}

// PlanMarketCancel refunds every still-open order's reservation when a
// market is cancelled outright (spec.md §5.5): BUY reservations return
// to available cash, SELL reservations return to available shares, and
// every affected order is marked CANCELLED.
func PlanMarketCancel(openOrders []*types.Order, feeRate decimal.Decimal) Plan {
	var plan Plan
	for _, o := range openOrders {
		sub := PlanOrderCancel(o, feeRate)
		plan.LedgerDeltas = append(plan.LedgerDeltas, sub.LedgerDeltas...)
		plan.PositionDeltas = append(plan.PositionDeltas, sub.PositionDeltas...)
		plan.OrderStateChanges = append(plan.OrderStateChanges, sub.OrderStateChanges...)
	}
	return plan
}

// ResolvePosition is the minimal view of a holder's position the
// resolution calculator needs: who holds how many shares of the outcome
// being settled (winning or losing).
type ResolvePosition struct {
	UserID types.UserID
	Shares decimal.Decimal
}

// PlanResolve pays out 1.00 per share held in the winning outcome and
// records a zero-delta SETTLEMENT_LOSS entry for every losing-side
// holder, per spec.md §5.4. The zero entry carries no cash movement —
// losers receive nothing — but keeps the audit trail complete: every
// position that existed at resolution time has a corresponding ledger
// record, not just the ones that got paid.
func PlanResolve(marketID types.MarketID, winners, losers []ResolvePosition, payoutPerShare decimal.Decimal) Plan {
	var plan Plan
	for _, w := range winners {
		if !w.Shares.IsPositive() {
			continue
		}
		payout := w.Shares.Mul(payoutPerShare)
		plan.addLedger(ledger.Delta{
			UserID:         w.UserID,
			DeltaAvailable: payout,
			Reason:         types.ReasonSettlementWin,
			RefType:        types.RefMarket,
			RefID:          string(marketID),
		})
	}
	for _, l := range losers {
		if !l.Shares.IsPositive() {
			continue
		}
		plan.addLedger(ledger.Delta{
			UserID:         l.UserID,
			DeltaAvailable: decimal.Zero,
			Reason:         types.ReasonSettlementLoss,
			RefType:        types.RefMarket,
			RefID:          string(marketID),
		})
	}
	return plan
}

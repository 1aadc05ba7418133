// Package types holds the data model shared across the trading core:
// orders, markets, ledger entries, and the enumerations that describe
// them. Kept dependency-free (beyond decimal) so every other package in
// the core can import it without risking an import cycle.
package types

import (
	"time"

	"github.com/wyvernlabs/predictcore/pkg/decimal"
)

// UserID identifies an account. The core treats it as an opaque string;
// identity, wallets, and auth are handled outside the core.
type UserID string

// SystemAccountID is the counterparty credited with collected taker fees.
const SystemAccountID UserID = "SYSTEM"

// MarketID identifies a binary prediction market.
type MarketID string

// OrderID identifies a single order, unique across all markets.
type OrderID string

// Outcome is one side of a binary market.
type Outcome int8

const (
	YES Outcome = iota
	NO
)

func (o Outcome) String() string {
	switch o {
	case YES:
		return "YES"
	case NO:
		return "NO"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other outcome.
func (o Outcome) Opposite() Outcome {
	if o == YES {
		return NO
	}
	return YES
}

// Side is the direction of an order.
type Side int8

const (
	BUY Side = iota
	SELL
)

func (s Side) String() string {
	switch s {
	case BUY:
		return "BUY"
	case SELL:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == BUY {
		return SELL
	}
	return BUY
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus int8

const (
	OrderOpen OrderStatus = iota
	OrderPartial
	OrderFilled
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderOpen:
		return "OPEN"
	case OrderPartial:
		return "PARTIAL"
	case OrderFilled:
		return "FILLED"
	case OrderCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Order is the single order shape the core exposes. The teacher repo this
// is grounded on carried two incompatible Order types (a pre-refactor
// core.Order and a current orderbook.Order) — this core keeps exactly one.
type Order struct {
	ID        OrderID
	UserID    UserID
	MarketID  MarketID
	Outcome   Outcome
	Side      Side
	Price     decimal.Decimal
	Quantity  decimal.Decimal // original quantity
	Remaining decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
	// Seq breaks ties between orders created within the same timestamp
	// tick; it is assigned by the coordinator in admission order and is
	// strictly increasing, making time-priority total even when the
	// clock doesn't advance between two placements.
	Seq uint64
}

// Filled reports the quantity already matched away.
func (o *Order) Filled() decimal.Decimal {
	return o.Quantity.Sub(o.Remaining)
}

// MarketStatus is the lifecycle state of a market.
type MarketStatus int8

const (
	MarketOpen MarketStatus = iota
	MarketResolved
	MarketCancelled
)

func (s MarketStatus) String() string {
	switch s {
	case MarketOpen:
		return "OPEN"
	case MarketResolved:
		return "RESOLVED"
	case MarketCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Market is a single yes/no question.
type Market struct {
	ID        MarketID
	Question  string
	Status    MarketStatus
	CreatedAt time.Time
}

// Resolution binds a resolved market to its winning outcome.
type Resolution struct {
	MarketID       MarketID
	WinningOutcome Outcome
	ResolvedAt     time.Time
	ResolverUserID UserID
}

// LedgerReason is the closed set of reasons a ledger entry may carry.
type LedgerReason string

const (
	ReasonFaucetCredit       LedgerReason = "FAUCET_CREDIT"
	ReasonOrderReserve       LedgerReason = "ORDER_RESERVE"
	ReasonOrderReserveRelease LedgerReason = "ORDER_RESERVE_RELEASE"
	ReasonTradeBuy           LedgerReason = "TRADE_BUY"
	ReasonTradeSell          LedgerReason = "TRADE_SELL"
	ReasonTradeFee           LedgerReason = "TRADE_FEE"
	ReasonSettlementWin      LedgerReason = "SETTLEMENT_WIN"
	ReasonSettlementLoss     LedgerReason = "SETTLEMENT_LOSS"
	ReasonMarketCancelRefund LedgerReason = "MARKET_CANCEL_REFUND"
	ReasonAdminAdjustment    LedgerReason = "ADMIN_ADJUSTMENT"
)

// RefType names what a ledger entry or position delta is attributable to.
type RefType string

const (
	RefOrder  RefType = "ORDER"
	RefTrade  RefType = "TRADE"
	RefMarket RefType = "MARKET"
)

// Package storage is the embedded persistence adapter (C10): a Pebble-
// backed mirror of the ledger, position, order, and market state kept in
// memory by the coordinator. It is grounded on the teacher's
// pkg/storage key-prefix scheme (account/position/order/trade keys,
// prefix scans bounded with keyUpperBound) adapted from the teacher's
// Ethereum-address-keyed accounts to this core's string UserID/MarketID/
// OrderID types.
//
// Key schema:
//
//	bal:<userID>                        -> Balance
//	ledg:<userID>:<20-digit entryID>    -> Entry
//	pos:<userID>:<marketID>:<outcome>   -> Position
//	ord:<marketID>:<orderID>            -> Order
//	mkt:<marketID>                      -> Market
package storage

import "fmt"

const (
	prefixBalance  = "bal:"
	prefixLedger   = "ledg:"
	prefixPosition = "pos:"
	prefixOrder    = "ord:"
	prefixMarket   = "mkt:"
)

func balanceKey(userID string) []byte {
	return []byte(prefixBalance + userID)
}

func ledgerKey(userID string, entryID uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixLedger, userID, entryID))
}

func ledgerPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixLedger, userID))
}

func positionKey(userID, marketID, outcome string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", prefixPosition, userID, marketID, outcome))
}

func positionPrefixForUser(userID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixPosition, userID))
}

func orderKey(marketID, orderID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixOrder, marketID, orderID))
}

func orderPrefixForMarket(marketID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixOrder, marketID))
}

func marketKey(marketID string) []byte {
	return []byte(prefixMarket + marketID)
}

func marketPrefix() []byte {
	return []byte(prefixMarket)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

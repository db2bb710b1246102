package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawLadderEntry is one level of a one-sided liquidity ladder exactly as the
// pool snapshot endpoint returns it: hex-encoded integer amount and
// hex-encoded sqrt price. An empty string means the field was absent from the
// wire payload.
type RawLadderEntry struct {
	AmountHex    string
	SqrtPriceHex string
}

// RawOrderBook is an undecoded pool snapshot. A nil side means the key was
// missing from the response; an empty non-nil side is a valid empty ladder.
type RawOrderBook struct {
	Bids []RawLadderEntry
	Asks []RawLadderEntry
}

// OrderBookLevel is a single decoded price level. Amount is denominated in
// the base asset. A zero amount is valid and marks exhausted liquidity at
// that price boundary.
type OrderBookLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// OrderBook is a fully decoded order book snapshot for one trading pair.
// Bids are ordered best to worst (descending price) and asks best to worst
// (ascending price), preserving the ladder ordering from the remote.
//
// Version starts at 1 for the first successfully built snapshot of a pair and
// increases by 1 on every subsequent rebuild. Snapshots are immutable once
// published; writers replace the whole value rather than mutating levels.
type OrderBook struct {
	Pair      string
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
	Version   uint64
	Timestamp time.Time
}

// BestBid returns the top bid level, if any.
func (b *OrderBook) BestBid() (OrderBookLevel, bool) {
	if len(b.Bids) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask level, if any.
func (b *OrderBook) BestAsk() (OrderBookLevel, bool) {
	if len(b.Asks) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Asks[0], true
}

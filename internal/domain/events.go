package domain

import "encoding/json"

// EventType tags the closed set of stream event kinds.
type EventType string

const (
	EventOrderUpdate   EventType = "order_update"
	EventTradeUpdate   EventType = "trade_update"
	EventBalanceUpdate EventType = "balance_update"
	EventUnknown       EventType = "unknown"
)

// StreamEvent is one decoded frame from a streaming subscription. Exactly one
// of Order, Trade, or Balances is populated according to Type; Unknown events
// carry only the raw payload so consumers can inspect shapes the decoder does
// not recognize instead of losing them.
//
// Seq is the frame's stid sequence id, used for ordering and dedup.
type StreamEvent struct {
	Type     EventType
	Seq      uint64
	Order    *OrderUpdate
	Trade    *TradeUpdate
	Balances []AssetBalance
	Raw      json.RawMessage
}

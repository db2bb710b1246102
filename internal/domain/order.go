package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order book side an order rests on.
type Side string

const (
	SideBid Side = "Bid"
	SideAsk Side = "Ask"
)

// OrderStatus is the remote lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusClosed    OrderStatus = "CLOSED"
)

// OpenOrder is one resting limit order as returned by the open-orders query.
// Tick is the integer price exponent the order was placed at.
type OpenOrder struct {
	ID     string
	Pair   string
	Side   Side
	Tick   int32
	Amount decimal.Decimal
}

// OrderUpdate is an order lifecycle event from the orders stream.
type OrderUpdate struct {
	ID             string
	ClientOrderID  string
	Pair           string
	Side           Side
	Status         OrderStatus
	Price          decimal.Decimal
	Amount         decimal.Decimal
	FilledQuantity decimal.Decimal
	AvgFilledPrice decimal.Decimal
	Fee            decimal.Decimal
	Timestamp      time.Time
}

// OrderFill is one historical fill from the account order-fills query.
type OrderFill struct {
	OrderID string
	Pair    string
	Side    Side
	Price   decimal.Decimal
	Amount  decimal.Decimal
	Fee     decimal.Decimal
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeUpdate is a trade execution event from the trades stream.
type TradeUpdate struct {
	TradeID       string
	OrderID       string
	ClientOrderID string
	Pair          string
	Side          Side
	Price         decimal.Decimal
	Amount        decimal.Decimal
	Timestamp     time.Time
}

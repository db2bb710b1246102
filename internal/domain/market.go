package domain

import "github.com/shopspring/decimal"

// Market is the decoded metadata for one tradable pool.
type Market struct {
	Base  Asset
	Quote Asset

	// Fee rates in hundredths of a pip (1 pip = 0.01%), as reported by the
	// pool environment endpoint.
	LimitOrderFeeHundredthPips uint64
	RangeOrderFeeHundredthPips uint64
}

// Symbol returns the "BASE-QUOTE" trading pair string for the market.
func (m Market) Symbol() string {
	return m.Base.Symbol + "-" + m.Quote.Symbol
}

// MarketPrice is the current pool pricing for a pair. Buy and Sell are the
// prices quoted for each swap direction; RangeOrder is the pool's marginal
// price. All are quote-per-base human prices.
type MarketPrice struct {
	Buy        decimal.Decimal
	Sell       decimal.Decimal
	RangeOrder decimal.Decimal
}

// TradingRule carries the minimum increments for one trading pair, derived
// from the per-asset decimal places. Consumed by the host runtime when
// quantizing order prices and amounts.
type TradingRule struct {
	Pair                   string
	MinPriceIncrement      decimal.Decimal
	MinBaseAmountIncrement decimal.Decimal
}

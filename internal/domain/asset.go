package domain

import "github.com/shopspring/decimal"

// Asset identifies a token on one of the chains supported by the Chainflip
// protocol. Identity is the (chain, symbol) pair: "ETH" on Ethereum and "ETH"
// on Arbitrum are distinct assets.
type Asset struct {
	Chain  string
	Symbol string
}

// String returns the canonical "Chain:SYMBOL" form used in logs and cache keys.
func (a Asset) String() string {
	return a.Chain + ":" + a.Symbol
}

// IsZero reports whether the asset is the empty value.
func (a Asset) IsZero() bool {
	return a.Chain == "" && a.Symbol == ""
}

// AssetPair is an ordered (base, quote) asset pair resolved from a trading
// pair string such as "ETH-USDC".
type AssetPair struct {
	Base  Asset
	Quote Asset
}

// Symbol returns the "BASE-QUOTE" trading pair string for the pair.
func (p AssetPair) Symbol() string {
	return p.Base.Symbol + "-" + p.Quote.Symbol
}

// AssetBalance is a decoded account balance for a single asset.
type AssetBalance struct {
	Asset   Asset
	Balance decimal.Decimal
}

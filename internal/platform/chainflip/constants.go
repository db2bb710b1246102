package chainflip

import "github.com/alanyoungcy/flipfeed/internal/domain"

// State-chain RPC methods (market data, no account scope).
const (
	methodSupportedAssets  = "cf_supported_assets"
	methodPoolsEnvironment = "cf_pools_environment"
	methodPoolPrice        = "cf_pool_price_v2"
	methodPoolOrderbook    = "cf_pool_orderbook"
	methodPoolOrders       = "cf_pool_orders"
)

// LP API methods (account scope).
const (
	methodTotalBalances = "lp_total_balances"
	methodSetLimitOrder = "lp_set_limit_order"
	methodOrderFills    = "lp_order_fills"
)

// Streaming subscription names. The subscribe handshake is a JSON-RPC request
// whose method is the stream name and whose params identify the trading pair
// or account.
const (
	StreamOrders   = "lp_subscribe_order_status"
	StreamTrades   = "lp_subscribe_order_fills"
	StreamBalances = "lp_subscribe_balances"
)

// Frame type tags inside the websocket_streams envelope.
const (
	frameTypeOrder = "Order"
	frameTypeTrade = "TradeFormat"
)

// defaultDecimals is used for assets the protocol has not shipped explicit
// decimal metadata for yet.
const defaultDecimals int32 = 18

// assetDecimals maps each supported (chain, symbol) asset to its on-chain
// decimal places. Raw amounts and balances are integers scaled by these.
var assetDecimals = map[domain.Asset]int32{
	{Chain: "Ethereum", Symbol: "ETH"}:  18,
	{Chain: "Ethereum", Symbol: "FLIP"}: 18,
	{Chain: "Ethereum", Symbol: "USDC"}: 6,
	{Chain: "Ethereum", Symbol: "USDT"}: 6,
	{Chain: "Arbitrum", Symbol: "ETH"}:  18,
	{Chain: "Arbitrum", Symbol: "USDC"}: 6,
	{Chain: "Polkadot", Symbol: "DOT"}:  10,
	{Chain: "Bitcoin", Symbol: "BTC"}:   8,
	{Chain: "Solana", Symbol: "SOL"}:    9,
	{Chain: "Solana", Symbol: "USDC"}:   6,
}

// symbolDecimals is the symbol-only fallback for assets reported on chains
// the table above does not cover (e.g. a new EVM chain listing USDC).
var symbolDecimals = map[string]int32{
	"ETH":  18,
	"FLIP": 18,
	"USDC": 6,
	"USDT": 6,
	"DOT":  10,
	"BTC":  8,
	"SOL":  9,
}

// AssetDecimals returns the decimal places for an asset, preferring the exact
// (chain, symbol) entry, then the symbol fallback, then defaultDecimals.
func AssetDecimals(a domain.Asset) int32 {
	if d, ok := assetDecimals[a]; ok {
		return d
	}
	if d, ok := symbolDecimals[a.Symbol]; ok {
		return d
	}
	return defaultDecimals
}

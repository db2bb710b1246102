package chainflip

import (
	"encoding/json"
	"fmt"
)

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is the structured error detail carried inside a failed Outcome:
// the remote-reported code and message, or a synthesized one for transport
// faults.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Outcome is the uniform envelope every executor call resolves to. When
// Status is true, Data holds the decoded result payload; otherwise Err holds
// the structured error detail and Data is nil. Transport and protocol faults
// never escape the executor as errors; only context cancellation does.
type Outcome struct {
	Status bool
	Data   json.RawMessage
	Err    *RPCError
}

// assetJSON is one entry of the supported-assets response.
type assetJSON struct {
	Chain string `json:"chain"`
	Asset string `json:"asset"`
}

// ladderEntryJSON is one level of a pool orderbook ladder. Both fields are
// hex-encoded integers.
type ladderEntryJSON struct {
	Amount    string `json:"amount"`
	SqrtPrice string `json:"sqrt_price"`
}

// poolOrderbookJSON is the cf_pool_orderbook result. A missing side decodes
// to a nil slice, which the book builder treats as a malformed snapshot; an
// explicit empty array is a valid empty side.
type poolOrderbookJSON struct {
	Bids []ladderEntryJSON `json:"bids"`
	Asks []ladderEntryJSON `json:"asks"`
}

// poolPriceJSON is the cf_pool_price_v2 result. The price fields are
// hex-encoded sqrt prices.
type poolPriceJSON struct {
	BaseAsset  assetJSON `json:"base_asset"`
	QuoteAsset assetJSON `json:"quote_asset"`
	Buy        string    `json:"buy"`
	Sell       string    `json:"sell"`
	RangeOrder string    `json:"range_order"`
}

// poolFeesJSON is one pool's fee block inside cf_pools_environment.
type poolFeesJSON struct {
	LimitOrderFeeHundredthPips uint64    `json:"limit_order_fee_hundredth_pips"`
	RangeOrderFeeHundredthPips uint64    `json:"range_order_fee_hundredth_pips"`
	QuoteAsset                 assetJSON `json:"quote_asset"`
}

// poolsEnvironmentJSON is the cf_pools_environment result: fees keyed by
// chain, then by base asset symbol.
type poolsEnvironmentJSON struct {
	Fees map[string]map[string]poolFeesJSON `json:"fees"`
}

// balanceEntryJSON is one asset balance inside the chain-keyed balances map.
type balanceEntryJSON struct {
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// limitOrderJSON is one resting limit order in the cf_pool_orders result.
type limitOrderJSON struct {
	ID         string `json:"id"`
	Tick       int32  `json:"tick"`
	SellAmount string `json:"sell_amount"`
}

// poolOrdersJSON is the cf_pool_orders result, limit orders grouped by side.
type poolOrdersJSON struct {
	LimitOrders struct {
		Bids []limitOrderJSON `json:"bids"`
		Asks []limitOrderJSON `json:"asks"`
	} `json:"limit_orders"`
}

// orderFillJSON is one fill record from lp_order_fills. Price and amount are
// decimal strings, matching the compact keys used on the trades stream.
type orderFillJSON struct {
	OrderID string `json:"order_id"`
	Market  string `json:"m"`
	Side    string `json:"s"`
	Price   string `json:"p"`
	Qty     string `json:"q"`
	Fee     string `json:"fee"`
}

// txDetailsJSON is the lp_set_limit_order result; a present tx hash is the
// remote's confirmation that the extrinsic was accepted.
type txDetailsJSON struct {
	TxDetails struct {
		TxHash   string            `json:"tx_hash"`
		Response []json.RawMessage `json:"response"`
	} `json:"tx_details"`
}

// streamEnvelope is the outer wrapper of every streamed frame. Data is a
// JSON document encoded as a string.
type streamEnvelope struct {
	WebsocketStreams struct {
		Data string `json:"data"`
	} `json:"websocket_streams"`
}

// streamHeader carries the fields every decoded frame body shares.
type streamHeader struct {
	Type string `json:"type"`
	Stid uint64 `json:"stid"`
}

// orderFrameJSON is an order lifecycle event on the orders stream.
type orderFrameJSON struct {
	Type           string `json:"type"`
	Stid           uint64 `json:"stid"`
	ID             string `json:"id"`
	ClientOrderID  string `json:"client_order_id"`
	Status         string `json:"status"`
	Side           string `json:"side"`
	Qty            string `json:"qty"`
	Price          string `json:"price"`
	FilledQuantity string `json:"filled_quantity"`
	AvgFilledPrice string `json:"avg_filled_price"`
	Fee            string `json:"fee"`
	Timestamp      int64  `json:"timestamp"`
	Pair           struct {
		Base struct {
			Asset string `json:"asset"`
		} `json:"base"`
		Quote struct {
			Asset string `json:"asset"`
		} `json:"quote"`
	} `json:"pair"`
}

// tradeFrameJSON is a trade event on the trades stream, using the protocol's
// compact keys.
type tradeFrameJSON struct {
	Type    string `json:"type"`
	Stid    uint64 `json:"stid"`
	P       string `json:"p"`
	Q       string `json:"q"`
	M       string `json:"m"`
	T       string `json:"t"`
	Cid     string `json:"cid"`
	OrderID string `json:"order_id"`
	S       string `json:"s"`
	TradeID string `json:"trade_id"`
}

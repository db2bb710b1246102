// Package chainflip implements the Chainflip liquidity-provider API surface:
// a JSON-RPC request executor with a uniform success/failure envelope, a
// WebSocket stream client, and decoders from the wire encodings into domain
// types.
package chainflip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/flipfeed/internal/codec"
	"github.com/alanyoungcy/flipfeed/internal/domain"
)

// ExecutorConfig holds the endpoints and identity for an Executor.
type ExecutorConfig struct {
	// RPCURL is the state-chain RPC endpoint for cf_* market-data methods.
	RPCURL string

	// LPAPIURL is the LP API endpoint for lp_* account-scoped methods.
	LPAPIURL string

	// WSURL is the streaming endpoint for subscriptions.
	WSURL string

	// Address is the LP account address used in account-scoped calls and
	// subscription params.
	Address string

	// Timeout bounds each HTTP request. Zero means a 30s default.
	Timeout time.Duration
}

// Executor wraps every outbound Chainflip call in an Outcome envelope. Remote
// and transport faults are classified, logged, and absorbed so market-data
// refresh loops keep running; list-shaped methods degrade to empty slices and
// scalar methods to a nil sentinel. Context cancellation is the only error
// the public methods return.
type Executor struct {
	cfg        ExecutorConfig
	httpClient *http.Client
	logger     *slog.Logger
	nextID     atomic.Uint64
}

// NewExecutor creates an Executor for the given endpoints.
func NewExecutor(cfg ExecutorConfig, logger *slog.Logger) *Executor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "chainflip_executor")),
	}
}

// execute performs one JSON-RPC call against url and classifies the result.
// The blocking HTTP round trip runs on its own goroutine so a stalled remote
// cannot hold up the caller past ctx cancellation; the returned error is
// non-nil only when ctx was cancelled before the call resolved.
func (e *Executor) execute(ctx context.Context, url, method string, params ...any) (Outcome, error) {
	if params == nil {
		params = []any{}
	}
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      e.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	type result struct {
		outcome Outcome
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{outcome: e.doRequest(ctx, url, req)}
	}()

	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case r := <-ch:
		if !r.outcome.Status {
			e.logger.Warn("rpc request failed",
				slog.String("method", method),
				slog.Int("code", r.outcome.Err.Code),
				slog.String("message", r.outcome.Err.Message),
			)
		}
		return r.outcome, nil
	}
}

// doRequest performs the HTTP round trip and translates every failure mode
// into a failed Outcome.
func (e *Executor) doRequest(ctx context.Context, url string, rpcReq rpcRequest) Outcome {
	payload, err := json.Marshal(rpcReq)
	if err != nil {
		return failedOutcome(0, fmt.Sprintf("marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return failedOutcome(0, fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return failedOutcome(0, fmt.Sprintf("transport: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failedOutcome(0, fmt.Sprintf("read response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		return failedOutcome(resp.StatusCode, fmt.Sprintf("http status %s", resp.Status))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return failedOutcome(0, fmt.Sprintf("malformed response: %v", err))
	}
	if rpcResp.Error != nil {
		return Outcome{Status: false, Err: rpcResp.Error}
	}
	return Outcome{Status: true, Data: rpcResp.Result}
}

func failedOutcome(code int, msg string) Outcome {
	return Outcome{Status: false, Err: &RPCError{Code: code, Message: msg}}
}

// AllAssets fetches the full supported-asset list. It returns an empty slice,
// never nil and never a transport error, when the remote call or decode
// fails; only ctx cancellation is returned as an error.
func (e *Executor) AllAssets(ctx context.Context) ([]domain.Asset, error) {
	outcome, err := e.execute(ctx, e.cfg.RPCURL, methodSupportedAssets)
	if err != nil {
		return nil, err
	}
	if !outcome.Status {
		return []domain.Asset{}, nil
	}
	assets, perr := parseAssets(outcome.Data)
	if perr != nil {
		e.logger.Warn("discarding undecodable asset list", slog.String("error", perr.Error()))
		return []domain.Asset{}, nil
	}
	return assets, nil
}

// AllMarkets fetches the pools environment and returns the markets whose base
// asset is in the supported-asset universe. Degrades to an empty slice on any
// failure.
func (e *Executor) AllMarkets(ctx context.Context) ([]domain.Market, error) {
	assets, err := e.AllAssets(ctx)
	if err != nil {
		return nil, err
	}
	outcome, err := e.execute(ctx, e.cfg.RPCURL, methodPoolsEnvironment)
	if err != nil {
		return nil, err
	}
	if !outcome.Status {
		return []domain.Market{}, nil
	}
	markets, perr := parseMarkets(outcome.Data, assets)
	if perr != nil {
		e.logger.Warn("discarding undecodable pools environment", slog.String("error", perr.Error()))
		return []domain.Market{}, nil
	}
	return markets, nil
}

// MarketPrice fetches the current pool price for the pair. It returns nil,
// not a zero price, when the remote call fails, so callers can tell "no
// price available" apart from "priced at zero".
func (e *Executor) MarketPrice(ctx context.Context, base, quote domain.Asset) (*domain.MarketPrice, error) {
	outcome, err := e.execute(ctx, e.cfg.RPCURL, methodPoolPrice, assetParam(base), assetParam(quote))
	if err != nil {
		return nil, err
	}
	if !outcome.Status {
		return nil, nil
	}
	price, perr := parsePoolPrice(outcome.Data, base, quote)
	if perr != nil {
		e.logger.Warn("discarding undecodable pool price", slog.String("error", perr.Error()))
		return nil, nil
	}
	return price, nil
}

// PoolOrderBook fetches the raw liquidity ladders for the pair. Unlike the
// list-shaped methods this surfaces failure as an error: the caller owns the
// previous snapshot and decides whether stale data remains authoritative.
// The raw result payload is returned alongside for archival.
func (e *Executor) PoolOrderBook(ctx context.Context, base, quote domain.Asset) (domain.RawOrderBook, json.RawMessage, error) {
	outcome, err := e.execute(ctx, e.cfg.RPCURL, methodPoolOrderbook, assetParam(base), assetParam(quote))
	if err != nil {
		return domain.RawOrderBook{}, nil, err
	}
	if !outcome.Status {
		return domain.RawOrderBook{}, nil, fmt.Errorf("chainflip: pool orderbook %s-%s: %w", base.Symbol, quote.Symbol, outcome.Err)
	}
	raw, perr := ParseOrderBook(outcome.Data)
	if perr != nil {
		return domain.RawOrderBook{}, nil, perr
	}
	return raw, outcome.Data, nil
}

// OpenOrders fetches the account's resting limit orders for the pair.
// Degrades to an empty slice on failure.
func (e *Executor) OpenOrders(ctx context.Context, base, quote domain.Asset) ([]domain.OpenOrder, error) {
	outcome, err := e.execute(ctx, e.cfg.RPCURL, methodPoolOrders, assetParam(base), assetParam(quote), e.cfg.Address)
	if err != nil {
		return nil, err
	}
	if !outcome.Status {
		return []domain.OpenOrder{}, nil
	}
	pair := base.Symbol + "-" + quote.Symbol
	orders, perr := parsePoolOrders(outcome.Data, base, quote, pair)
	if perr != nil {
		e.logger.Warn("discarding undecodable pool orders", slog.String("error", perr.Error()))
		return []domain.OpenOrder{}, nil
	}
	return orders, nil
}

// AccountOrderFills fetches the account's recent fills. Degrades to an empty
// slice on failure.
func (e *Executor) AccountOrderFills(ctx context.Context) ([]domain.OrderFill, error) {
	outcome, err := e.execute(ctx, e.cfg.LPAPIURL, methodOrderFills, e.cfg.Address)
	if err != nil {
		return nil, err
	}
	if !outcome.Status {
		return []domain.OrderFill{}, nil
	}
	fills, perr := parseOrderFills(outcome.Data)
	if perr != nil {
		e.logger.Warn("discarding undecodable order fills", slog.String("error", perr.Error()))
		return []domain.OrderFill{}, nil
	}
	return fills, nil
}

// AllBalances fetches the account's balances across all chains. Degrades to
// an empty slice on failure.
func (e *Executor) AllBalances(ctx context.Context) ([]domain.AssetBalance, error) {
	outcome, err := e.execute(ctx, e.cfg.LPAPIURL, methodTotalBalances)
	if err != nil {
		return nil, err
	}
	if !outcome.Status {
		return []domain.AssetBalance{}, nil
	}
	balances, perr := parseBalances(outcome.Data)
	if perr != nil {
		e.logger.Warn("discarding undecodable balances", slog.String("error", perr.Error()))
		return []domain.AssetBalance{}, nil
	}
	if balances == nil {
		balances = []domain.AssetBalance{}
	}
	return balances, nil
}

// PlaceLimitOrder submits a limit order. The price is converted to a
// saturating tick and the amount hex-encoded in the sold asset's decimals.
// orderID may be empty, in which case a fresh uuid is used. Returns true only
// when the remote confirms the extrinsic; false on any failure outcome.
func (e *Executor) PlaceLimitOrder(ctx context.Context, base, quote domain.Asset, orderID string, side domain.Side, price, amount decimal.Decimal) (bool, error) {
	if orderID == "" {
		orderID = uuid.NewString()
	}
	bd, qd := AssetDecimals(base), AssetDecimals(quote)
	tick, clamped := codec.PriceToTick(price, bd, qd)
	if clamped {
		e.logger.Warn("limit order price clamped to tick bound",
			slog.String("pair", base.Symbol+"-"+quote.Symbol),
			slog.String("price", price.String()),
			slog.Int("tick", int(tick)),
		)
	}

	// Bids sell the quote asset, asks sell the base asset.
	sellDecimals := bd
	if side == domain.SideBid {
		sellDecimals = qd
	}
	amountHex, err := codec.Encode(amount, sellDecimals)
	if err != nil {
		return false, fmt.Errorf("chainflip: place limit order: %w", err)
	}

	outcome, err := e.execute(ctx, e.cfg.LPAPIURL, methodSetLimitOrder,
		assetParam(base), assetParam(quote), sideParam(side), orderID, tick, amountHex)
	if err != nil {
		return false, err
	}
	return orderConfirmed(outcome), nil
}

// CancelOrder cancels a resting limit order by setting its sell amount to
// zero. Returns true only when the remote confirms; false on any failure.
func (e *Executor) CancelOrder(ctx context.Context, base, quote domain.Asset, orderID string, side domain.Side) (bool, error) {
	outcome, err := e.execute(ctx, e.cfg.LPAPIURL, methodSetLimitOrder,
		assetParam(base), assetParam(quote), sideParam(side), orderID, nil, "0x0")
	if err != nil {
		return false, err
	}
	return orderConfirmed(outcome), nil
}

// CheckConnectionStatus verifies both endpoints are reachable and answering.
// The account endpoint is only probed when an address is configured.
func (e *Executor) CheckConnectionStatus(ctx context.Context) (bool, error) {
	outcome, err := e.execute(ctx, e.cfg.RPCURL, methodSupportedAssets)
	if err != nil {
		return false, err
	}
	if !outcome.Status {
		return false, nil
	}
	if e.cfg.Address == "" {
		return true, nil
	}
	outcome, err = e.execute(ctx, e.cfg.LPAPIURL, methodTotalBalances)
	if err != nil {
		return false, err
	}
	return outcome.Status, nil
}

// orderConfirmed reports whether a set-limit-order outcome carries the
// remote's explicit confirmation.
func orderConfirmed(outcome Outcome) bool {
	if !outcome.Status {
		return false
	}
	var details txDetailsJSON
	if err := json.Unmarshal(outcome.Data, &details); err != nil {
		return false
	}
	return details.TxDetails.TxHash != ""
}

func assetParam(a domain.Asset) map[string]string {
	return map[string]string{"chain": a.Chain, "asset": a.Symbol}
}

func sideParam(s domain.Side) string {
	if s == domain.SideBid {
		return "buy"
	}
	return "sell"
}

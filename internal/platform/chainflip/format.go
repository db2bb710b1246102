package chainflip

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/flipfeed/internal/codec"
	"github.com/alanyoungcy/flipfeed/internal/domain"
)

// parseAssets decodes the supported-assets result into domain assets.
func parseAssets(result json.RawMessage) ([]domain.Asset, error) {
	var raw []assetJSON
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("chainflip: decode asset list: %w", err)
	}
	assets := make([]domain.Asset, 0, len(raw))
	for _, a := range raw {
		assets = append(assets, domain.Asset{Chain: a.Chain, Symbol: a.Asset})
	}
	return assets, nil
}

// ParseOrderBook decodes a pool orderbook result into an undecoded ladder
// pair. Sides missing from the payload stay nil so the book builder can
// distinguish an absent key from an empty ladder.
func ParseOrderBook(result json.RawMessage) (domain.RawOrderBook, error) {
	var raw poolOrderbookJSON
	if err := json.Unmarshal(result, &raw); err != nil {
		return domain.RawOrderBook{}, fmt.Errorf("chainflip: decode pool orderbook: %w", domain.ErrMalformedSnapshot)
	}
	book := domain.RawOrderBook{}
	if raw.Bids != nil {
		book.Bids = make([]domain.RawLadderEntry, 0, len(raw.Bids))
		for _, e := range raw.Bids {
			book.Bids = append(book.Bids, domain.RawLadderEntry{AmountHex: e.Amount, SqrtPriceHex: e.SqrtPrice})
		}
	}
	if raw.Asks != nil {
		book.Asks = make([]domain.RawLadderEntry, 0, len(raw.Asks))
		for _, e := range raw.Asks {
			book.Asks = append(book.Asks, domain.RawLadderEntry{AmountHex: e.Amount, SqrtPriceHex: e.SqrtPrice})
		}
	}
	return book, nil
}

// parseBalances decodes the chain-keyed balances result, converting each
// hex balance using the asset's decimal places.
func parseBalances(result json.RawMessage) ([]domain.AssetBalance, error) {
	var raw map[string][]balanceEntryJSON
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("chainflip: decode balances: %w", err)
	}
	var balances []domain.AssetBalance
	for chain, entries := range raw {
		for _, e := range entries {
			asset := domain.Asset{Chain: chain, Symbol: e.Asset}
			bal, err := codec.Decode(e.Balance, AssetDecimals(asset))
			if err != nil {
				return nil, fmt.Errorf("chainflip: balance for %s: %w", asset, err)
			}
			balances = append(balances, domain.AssetBalance{Asset: asset, Balance: bal})
		}
	}
	return balances, nil
}

// parseMarkets decodes the pools-environment fee map into markets, skipping
// entries whose base symbol is not in the known asset universe (the remote
// occasionally reports pools for assets it has not listed yet).
func parseMarkets(result json.RawMessage, known []domain.Asset) ([]domain.Market, error) {
	var raw poolsEnvironmentJSON
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("chainflip: decode pools environment: %w", err)
	}

	knownSet := make(map[domain.Asset]bool, len(known))
	for _, a := range known {
		knownSet[a] = true
	}

	var markets []domain.Market
	for chain, pools := range raw.Fees {
		for symbol, fees := range pools {
			base := domain.Asset{Chain: chain, Symbol: symbol}
			if !knownSet[base] {
				continue
			}
			markets = append(markets, domain.Market{
				Base:                       base,
				Quote:                      domain.Asset{Chain: fees.QuoteAsset.Chain, Symbol: fees.QuoteAsset.Asset},
				LimitOrderFeeHundredthPips: fees.LimitOrderFeeHundredthPips,
				RangeOrderFeeHundredthPips: fees.RangeOrderFeeHundredthPips,
			})
		}
	}
	return markets, nil
}

// parsePoolPrice decodes a pool price result. The buy/sell/range_order fields
// are hex sqrt prices in the same fixed-point convention as ladder levels.
func parsePoolPrice(result json.RawMessage, base, quote domain.Asset) (*domain.MarketPrice, error) {
	var raw poolPriceJSON
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("chainflip: decode pool price: %w", err)
	}

	bd, qd := AssetDecimals(base), AssetDecimals(quote)
	buy, err := codec.DecodeSqrtPrice(raw.Buy, bd, qd)
	if err != nil {
		return nil, fmt.Errorf("chainflip: buy price: %w", err)
	}
	sell, err := codec.DecodeSqrtPrice(raw.Sell, bd, qd)
	if err != nil {
		return nil, fmt.Errorf("chainflip: sell price: %w", err)
	}
	rangeOrder, err := codec.DecodeSqrtPrice(raw.RangeOrder, bd, qd)
	if err != nil {
		return nil, fmt.Errorf("chainflip: range order price: %w", err)
	}
	return &domain.MarketPrice{Buy: buy, Sell: sell, RangeOrder: rangeOrder}, nil
}

// parsePoolOrders decodes resting limit orders for a pair, converting sell
// amounts using the relevant asset's decimal places (bids sell quote, asks
// sell base).
func parsePoolOrders(result json.RawMessage, base, quote domain.Asset, pair string) ([]domain.OpenOrder, error) {
	var raw poolOrdersJSON
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("chainflip: decode pool orders: %w", err)
	}

	orders := make([]domain.OpenOrder, 0, len(raw.LimitOrders.Bids)+len(raw.LimitOrders.Asks))
	for _, o := range raw.LimitOrders.Bids {
		amount, err := codec.Decode(o.SellAmount, AssetDecimals(quote))
		if err != nil {
			return nil, fmt.Errorf("chainflip: bid order %s: %w", o.ID, err)
		}
		orders = append(orders, domain.OpenOrder{ID: o.ID, Pair: pair, Side: domain.SideBid, Tick: o.Tick, Amount: amount})
	}
	for _, o := range raw.LimitOrders.Asks {
		amount, err := codec.Decode(o.SellAmount, AssetDecimals(base))
		if err != nil {
			return nil, fmt.Errorf("chainflip: ask order %s: %w", o.ID, err)
		}
		orders = append(orders, domain.OpenOrder{ID: o.ID, Pair: pair, Side: domain.SideAsk, Tick: o.Tick, Amount: amount})
	}
	return orders, nil
}

// parseOrderFills decodes the account order-fills result.
func parseOrderFills(result json.RawMessage) ([]domain.OrderFill, error) {
	var raw []orderFillJSON
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("chainflip: decode order fills: %w", err)
	}
	fills := make([]domain.OrderFill, 0, len(raw))
	for _, f := range raw {
		price, err := decimal.NewFromString(f.Price)
		if err != nil {
			return nil, fmt.Errorf("chainflip: fill %s price: %w", f.OrderID, err)
		}
		amount, err := decimal.NewFromString(f.Qty)
		if err != nil {
			return nil, fmt.Errorf("chainflip: fill %s qty: %w", f.OrderID, err)
		}
		fee := decimal.Zero
		if f.Fee != "" {
			if fee, err = decimal.NewFromString(f.Fee); err != nil {
				return nil, fmt.Errorf("chainflip: fill %s fee: %w", f.OrderID, err)
			}
		}
		fills = append(fills, domain.OrderFill{
			OrderID: f.OrderID,
			Pair:    f.Market,
			Side:    sideFromWire(f.Side),
			Price:   price,
			Amount:  amount,
			Fee:     fee,
		})
	}
	return fills, nil
}

// TradingRuleFor derives the minimum increments for a market from its assets'
// decimal places.
func TradingRuleFor(m domain.Market) domain.TradingRule {
	return domain.TradingRule{
		Pair:                   m.Symbol(),
		MinPriceIncrement:      decimal.New(1, -AssetDecimals(m.Quote)),
		MinBaseAmountIncrement: decimal.New(1, -AssetDecimals(m.Base)),
	}
}

// DecodeStreamFrame classifies a raw streamed frame into a typed event.
// Recognized shapes are closed: order frames (type "Order"), trade frames
// (type "TradeFormat"), and chain-keyed balance payloads. Anything else,
// including recognized types with undecodable bodies, maps to an Unknown
// event carrying the raw payload; frames are never dropped silently.
func DecodeStreamFrame(raw []byte) domain.StreamEvent {
	body := raw
	var env streamEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.WebsocketStreams.Data != "" {
		body = []byte(env.WebsocketStreams.Data)
	}

	var header streamHeader
	if err := json.Unmarshal(body, &header); err != nil {
		return unknownEvent(0, raw)
	}

	switch header.Type {
	case frameTypeOrder:
		return decodeOrderFrame(header.Stid, body, raw)
	case frameTypeTrade:
		return decodeTradeFrame(header.Stid, body, raw)
	}

	// Balance frames carry no type tag: the body is the chain-keyed balance
	// response shape.
	var balancePayload struct {
		Result map[string][]balanceEntryJSON `json:"result"`
	}
	if err := json.Unmarshal(body, &balancePayload); err == nil && len(balancePayload.Result) > 0 {
		encoded, err := json.Marshal(balancePayload.Result)
		if err == nil {
			if balances, err := parseBalances(encoded); err == nil {
				return domain.StreamEvent{Type: domain.EventBalanceUpdate, Seq: header.Stid, Balances: balances, Raw: raw}
			}
		}
	}

	return unknownEvent(header.Stid, raw)
}

func decodeOrderFrame(stid uint64, body, raw []byte) domain.StreamEvent {
	var f orderFrameJSON
	if err := json.Unmarshal(body, &f); err != nil {
		return unknownEvent(stid, raw)
	}

	price, err1 := decimal.NewFromString(f.Price)
	qty, err2 := decimal.NewFromString(f.Qty)
	filled, err3 := decimal.NewFromString(f.FilledQuantity)
	avgPrice, err4 := decimal.NewFromString(f.AvgFilledPrice)
	fee, err5 := decimal.NewFromString(f.Fee)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return unknownEvent(stid, raw)
	}

	update := &domain.OrderUpdate{
		ID:             f.ID,
		ClientOrderID:  f.ClientOrderID,
		Pair:           f.Pair.Base.Asset + "-" + f.Pair.Quote.Asset,
		Side:           sideFromWire(f.Side),
		Status:         domain.OrderStatus(f.Status),
		Price:          price,
		Amount:         qty,
		FilledQuantity: filled,
		AvgFilledPrice: avgPrice,
		Fee:            fee,
		Timestamp:      time.Unix(f.Timestamp, 0).UTC(),
	}
	return domain.StreamEvent{Type: domain.EventOrderUpdate, Seq: stid, Order: update, Raw: raw}
}

func decodeTradeFrame(stid uint64, body, raw []byte) domain.StreamEvent {
	var f tradeFrameJSON
	if err := json.Unmarshal(body, &f); err != nil {
		return unknownEvent(stid, raw)
	}

	price, err1 := decimal.NewFromString(f.P)
	qty, err2 := decimal.NewFromString(f.Q)
	if err1 != nil || err2 != nil {
		return unknownEvent(stid, raw)
	}

	var ts time.Time
	if f.T != "" {
		if secs, err := strconv.ParseFloat(f.T, 64); err == nil {
			ts = time.Unix(int64(secs), 0).UTC()
		}
	}

	update := &domain.TradeUpdate{
		TradeID:       f.TradeID,
		OrderID:       f.OrderID,
		ClientOrderID: f.Cid,
		Pair:          f.M,
		Side:          sideFromWire(f.S),
		Price:         price,
		Amount:        qty,
		Timestamp:     ts,
	}
	return domain.StreamEvent{Type: domain.EventTradeUpdate, Seq: stid, Trade: update, Raw: raw}
}

// sideFromWire normalizes the stream's "buy"/"sell" side strings to the
// canonical Bid/Ask sides.
func sideFromWire(s string) domain.Side {
	switch s {
	case "buy":
		return domain.SideBid
	case "sell":
		return domain.SideAsk
	}
	return domain.Side(s)
}

func unknownEvent(stid uint64, raw []byte) domain.StreamEvent {
	return domain.StreamEvent{Type: domain.EventUnknown, Seq: stid, Raw: json.RawMessage(raw)}
}

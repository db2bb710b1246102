// Package book builds decoded, versioned order book snapshots from raw
// liquidity-pool ladders and keeps the latest snapshot per trading pair
// available for concurrent readers.
package book

import (
	"fmt"
	"sync"
	"time"

	"github.com/alanyoungcy/flipfeed/internal/codec"
	"github.com/alanyoungcy/flipfeed/internal/domain"
)

// DecimalsFunc resolves an asset's on-chain decimal places.
type DecimalsFunc func(domain.Asset) int32

// Builder decodes raw snapshots into order books and assigns each trading
// pair a monotonically increasing version. Versions are only consumed by
// successful builds; a failed build leaves the pair's version untouched so
// the previous snapshot remains authoritative.
type Builder struct {
	decimals DecimalsFunc

	mu       sync.Mutex
	versions map[string]uint64
}

// NewBuilder creates a Builder using the given decimals resolver.
func NewBuilder(decimals DecimalsFunc) *Builder {
	return &Builder{
		decimals: decimals,
		versions: make(map[string]uint64),
	}
}

// Build decodes a raw snapshot for the pair. Ladder ordering is preserved as
// received (bids best to worst, asks best to worst) and zero-amount levels
// pass through; an empty side is valid, a missing side is not.
//
// It fails with domain.ErrMalformedSnapshot (wrapped) when either side is
// missing or an entry lacks its amount or sqrt price; on failure no version
// is consumed.
func (b *Builder) Build(pair string, raw domain.RawOrderBook, base, quote domain.Asset) (domain.OrderBook, error) {
	if raw.Bids == nil || raw.Asks == nil {
		return domain.OrderBook{}, fmt.Errorf("book: %s: missing ladder side: %w", pair, domain.ErrMalformedSnapshot)
	}

	baseDecimals := b.decimals(base)
	quoteDecimals := b.decimals(quote)

	bids, err := decodeSide(raw.Bids, baseDecimals, quoteDecimals)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("book: %s bids: %w", pair, err)
	}
	asks, err := decodeSide(raw.Asks, baseDecimals, quoteDecimals)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("book: %s asks: %w", pair, err)
	}

	b.mu.Lock()
	b.versions[pair]++
	version := b.versions[pair]
	b.mu.Unlock()

	return domain.OrderBook{
		Pair:      pair,
		Bids:      bids,
		Asks:      asks,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}, nil
}

// decodeSide decodes one ladder. Amounts are base-denominated; prices are
// recovered by squaring the Q96 sqrt price.
func decodeSide(entries []domain.RawLadderEntry, baseDecimals, quoteDecimals int32) ([]domain.OrderBookLevel, error) {
	levels := make([]domain.OrderBookLevel, 0, len(entries))
	for i, e := range entries {
		if e.AmountHex == "" || e.SqrtPriceHex == "" {
			return nil, fmt.Errorf("level %d missing amount or sqrt_price: %w", i, domain.ErrMalformedSnapshot)
		}
		amount, err := codec.Decode(e.AmountHex, baseDecimals)
		if err != nil {
			return nil, fmt.Errorf("level %d amount: %w: %w", i, domain.ErrMalformedSnapshot, err)
		}
		price, err := codec.DecodeSqrtPrice(e.SqrtPriceHex, baseDecimals, quoteDecimals)
		if err != nil {
			return nil, fmt.Errorf("level %d sqrt_price: %w: %w", i, domain.ErrMalformedSnapshot, err)
		}
		levels = append(levels, domain.OrderBookLevel{Price: price, Amount: amount})
	}
	return levels, nil
}

// Package registry caches the Chainflip asset universe and resolves trading
// pair strings to asset pairs. It is an owned, explicitly-scoped cache: the
// owner decides when to refresh or invalidate, and no background timer runs
// inside the package.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

// pairSeparator splits trading pair strings like "ETH-USDC".
const pairSeparator = "-"

// AssetFetcher is the slice of the request executor the registry needs.
type AssetFetcher interface {
	AllAssets(ctx context.Context) ([]domain.Asset, error)
}

// Registry caches asset descriptors keyed by symbol. Refresh is the only
// mutator and must be serialized by the caller; resolution is safe for
// concurrent readers.
type Registry struct {
	fetcher AssetFetcher
	logger  *slog.Logger

	// chainOverride pins a symbol to an explicit chain, configured per
	// deployment. An override wins over chain inference and resolves the
	// multi-chain ambiguity for symbols like ETH or USDC.
	chainOverride map[string]string

	mu       sync.RWMutex
	assets   []domain.Asset
	bySymbol map[string][]domain.Asset
}

// New creates a Registry. chainOverride maps asset symbols to the chain that
// deployment trades them on; it may be nil.
func New(fetcher AssetFetcher, chainOverride map[string]string, logger *slog.Logger) *Registry {
	overrides := make(map[string]string, len(chainOverride))
	for sym, chain := range chainOverride {
		overrides[strings.ToUpper(sym)] = chain
	}
	return &Registry{
		fetcher:       fetcher,
		chainOverride: overrides,
		logger:        logger.With(slog.String("component", "asset_registry")),
	}
}

// Refresh fetches the full asset list and replaces the cache. Transport
// failures never propagate: the executor degrades to an empty list, and the
// cache is then left untouched so stale descriptors stay resolvable. Only
// context cancellation is returned as an error.
func (r *Registry) Refresh(ctx context.Context) ([]domain.Asset, error) {
	assets, err := r.fetcher.AllAssets(ctx)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		r.logger.Warn("asset refresh returned no assets, keeping cached universe")
		return []domain.Asset{}, nil
	}

	bySymbol := make(map[string][]domain.Asset, len(assets))
	for _, a := range assets {
		key := strings.ToUpper(a.Symbol)
		bySymbol[key] = append(bySymbol[key], a)
	}

	r.mu.Lock()
	r.assets = assets
	r.bySymbol = bySymbol
	r.mu.Unlock()

	r.logger.Debug("asset universe refreshed", slog.Int("assets", len(assets)))
	return assets, nil
}

// Invalidate drops the cached universe. The next Refresh repopulates it.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.assets = nil
	r.bySymbol = nil
	r.mu.Unlock()
}

// Assets returns the cached universe.
func (r *Registry) Assets() []domain.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Asset, len(r.assets))
	copy(out, r.assets)
	return out
}

// ResolvePair resolves a "BASE-QUOTE" trading pair string against the cached
// universe. It fails with domain.ErrUnknownTradingPair when either side has
// no match and domain.ErrAmbiguousAsset when a symbol matches more than one
// chain and no override pins it; ambiguity is never resolved by a silent
// pick.
func (r *Registry) ResolvePair(pair string) (domain.AssetPair, error) {
	parts := strings.Split(pair, pairSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.AssetPair{}, fmt.Errorf("registry: pair %q: %w", pair, domain.ErrUnknownTradingPair)
	}

	base, err := r.resolveSymbol(parts[0])
	if err != nil {
		return domain.AssetPair{}, fmt.Errorf("registry: pair %q base: %w", pair, err)
	}
	quote, err := r.resolveSymbol(parts[1])
	if err != nil {
		return domain.AssetPair{}, fmt.Errorf("registry: pair %q quote: %w", pair, err)
	}
	return domain.AssetPair{Base: base, Quote: quote}, nil
}

func (r *Registry) resolveSymbol(symbol string) (domain.Asset, error) {
	key := strings.ToUpper(symbol)

	r.mu.RLock()
	candidates := r.bySymbol[key]
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return domain.Asset{}, fmt.Errorf("symbol %q: %w", symbol, domain.ErrUnknownTradingPair)
	}

	if chain, ok := r.chainOverride[key]; ok {
		for _, c := range candidates {
			if c.Chain == chain {
				return c, nil
			}
		}
		return domain.Asset{}, fmt.Errorf("symbol %q not listed on chain %q: %w", symbol, chain, domain.ErrUnknownTradingPair)
	}

	if len(candidates) > 1 {
		return domain.Asset{}, fmt.Errorf("symbol %q listed on %d chains: %w", symbol, len(candidates), domain.ErrAmbiguousAsset)
	}
	return candidates[0], nil
}

package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

type fakeFetcher struct {
	assets []domain.Asset
	err    error
	calls  int
}

func (f *fakeFetcher) AllAssets(ctx context.Context) ([]domain.Asset, error) {
	f.calls++
	return f.assets, f.err
}

var testUniverse = []domain.Asset{
	{Chain: "Ethereum", Symbol: "ETH"},
	{Chain: "Ethereum", Symbol: "FLIP"},
	{Chain: "Ethereum", Symbol: "USDC"},
	{Chain: "Arbitrum", Symbol: "USDC"},
	{Chain: "Bitcoin", Symbol: "BTC"},
}

func newTestRegistry(t *testing.T, overrides map[string]string) (*Registry, *fakeFetcher) {
	t.Helper()
	fetcher := &fakeFetcher{assets: testUniverse}
	r := New(fetcher, overrides, slog.Default())
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	return r, fetcher
}

func TestRefreshPopulatesUniverse(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	assert.Len(t, r.Assets(), len(testUniverse))
}

func TestRefreshEmptyKeepsCache(t *testing.T) {
	r, fetcher := newTestRegistry(t, nil)

	fetcher.assets = nil
	assets, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)

	// The previously cached universe still resolves.
	pair, err := r.ResolvePair("ETH-FLIP")
	require.NoError(t, err)
	assert.Equal(t, "ETH", pair.Base.Symbol)
}

func TestRefreshPropagatesCancellation(t *testing.T) {
	fetcher := &fakeFetcher{err: context.Canceled}
	r := New(fetcher, nil, slog.Default())

	_, err := r.Refresh(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolvePair(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	pair, err := r.ResolvePair("ETH-FLIP")
	require.NoError(t, err)
	assert.Equal(t, domain.Asset{Chain: "Ethereum", Symbol: "ETH"}, pair.Base)
	assert.Equal(t, domain.Asset{Chain: "Ethereum", Symbol: "FLIP"}, pair.Quote)
}

func TestResolvePairCaseInsensitive(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	pair, err := r.ResolvePair("eth-flip")
	require.NoError(t, err)
	assert.Equal(t, "ETH", pair.Base.Symbol)
}

func TestResolvePairUnknownSymbol(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	_, err := r.ResolvePair("DOGE-USDC")
	assert.ErrorIs(t, err, domain.ErrUnknownTradingPair)
}

func TestResolvePairMalformed(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	for _, pair := range []string{"", "ETH", "ETH-", "-USDC", "ETH-USDC-BTC"} {
		_, err := r.ResolvePair(pair)
		assert.ErrorIs(t, err, domain.ErrUnknownTradingPair, "pair %q", pair)
	}
}

func TestResolvePairAmbiguousWithoutOverride(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	_, err := r.ResolvePair("ETH-USDC")
	assert.ErrorIs(t, err, domain.ErrAmbiguousAsset)
}

func TestResolvePairOverridePinsChain(t *testing.T) {
	r, _ := newTestRegistry(t, map[string]string{"usdc": "Arbitrum"})

	pair, err := r.ResolvePair("ETH-USDC")
	require.NoError(t, err)
	assert.Equal(t, "Arbitrum", pair.Quote.Chain)
}

func TestResolvePairOverrideChainNotListed(t *testing.T) {
	r, _ := newTestRegistry(t, map[string]string{"USDC": "Solana"})

	_, err := r.ResolvePair("ETH-USDC")
	assert.ErrorIs(t, err, domain.ErrUnknownTradingPair)
}

func TestInvalidate(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	r.Invalidate()
	assert.Empty(t, r.Assets())
	_, err := r.ResolvePair("ETH-FLIP")
	assert.ErrorIs(t, err, domain.ErrUnknownTradingPair)
}

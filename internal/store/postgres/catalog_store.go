package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

// CatalogStore implements domain.CatalogStore using PostgreSQL. It records
// which assets and markets the node has advertised, not order or trade flow.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a CatalogStore backed by the given connection pool.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// UpsertAssets inserts or refreshes the given assets in a single batch.
func (s *CatalogStore) UpsertAssets(ctx context.Context, assets []domain.Asset) error {
	if len(assets) == 0 {
		return nil
	}

	const query = `
		INSERT INTO assets (chain, symbol, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (chain, symbol) DO UPDATE SET
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, a := range assets {
		batch.Queue(query, a.Chain, a.Symbol)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range assets {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert assets batch: %w", err)
		}
	}
	return nil
}

// UpsertMarkets inserts or refreshes the given markets in a single batch.
func (s *CatalogStore) UpsertMarkets(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	const query = `
		INSERT INTO markets (
			symbol, base_chain, base_symbol, quote_chain, quote_symbol,
			limit_order_fee_hundredth_pips, range_order_fee_hundredth_pips,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			base_chain                     = EXCLUDED.base_chain,
			base_symbol                    = EXCLUDED.base_symbol,
			quote_chain                    = EXCLUDED.quote_chain,
			quote_symbol                   = EXCLUDED.quote_symbol,
			limit_order_fee_hundredth_pips = EXCLUDED.limit_order_fee_hundredth_pips,
			range_order_fee_hundredth_pips = EXCLUDED.range_order_fee_hundredth_pips,
			updated_at                     = NOW()`

	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(query,
			m.Symbol(),
			m.Base.Chain, m.Base.Symbol,
			m.Quote.Chain, m.Quote.Symbol,
			m.LimitOrderFeeHundredthPips, m.RangeOrderFeeHundredthPips,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range markets {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert markets batch: %w", err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.CatalogStore = (*CatalogStore)(nil)

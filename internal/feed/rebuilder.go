package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/flipfeed/internal/book"
	"github.com/alanyoungcy/flipfeed/internal/domain"
)

// PairResolver resolves trading pair symbols against the known asset
// universe.
type PairResolver interface {
	ResolvePair(pair string) (domain.AssetPair, error)
}

// BookSource fetches one raw pool snapshot. The second return value is the
// untouched RPC result payload for archival.
type BookSource interface {
	PoolOrderBook(ctx context.Context, base, quote domain.Asset) (domain.RawOrderBook, json.RawMessage, error)
}

// Rebuilder refreshes the tracked pairs' order books from the node. Each
// pair is handled independently: one pair failing leaves its previous book
// in place and does not block the others. It implements Snapshotter.
type Rebuilder struct {
	pairs    []string
	source   BookSource
	resolver PairResolver
	builder  *book.Builder
	keeper   *book.Keeper
	cache    domain.BookCache
	archiver domain.SnapshotArchiver
	logger   *slog.Logger
}

// NewRebuilder creates a Rebuilder. cache and archiver are optional; leave
// them nil to skip publishing or archival.
func NewRebuilder(
	pairs []string,
	source BookSource,
	resolver PairResolver,
	builder *book.Builder,
	keeper *book.Keeper,
	cache domain.BookCache,
	archiver domain.SnapshotArchiver,
	logger *slog.Logger,
) *Rebuilder {
	return &Rebuilder{
		pairs:    pairs,
		source:   source,
		resolver: resolver,
		builder:  builder,
		keeper:   keeper,
		cache:    cache,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "rebuilder")),
	}
}

// Rebuild refreshes every tracked pair and returns the joined per-pair
// errors, if any. Context cancellation stops the walk immediately.
func (r *Rebuilder) Rebuild(ctx context.Context) error {
	var errs []error
	for _, pair := range r.pairs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.rebuildPair(ctx, pair); err != nil {
			r.logger.Warn("pair rebuild failed, keeping previous book",
				slog.String("pair", pair),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Rebuilder) rebuildPair(ctx context.Context, pair string) error {
	assets, err := r.resolver.ResolvePair(pair)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", pair, err)
	}

	raw, payload, err := r.source.PoolOrderBook(ctx, assets.Base, assets.Quote)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", pair, err)
	}

	ob, err := r.builder.Build(pair, raw, assets.Base, assets.Quote)
	if err != nil {
		return err
	}
	r.keeper.Put(ob)

	r.logger.Debug("book rebuilt",
		slog.String("pair", pair),
		slog.Uint64("version", ob.Version),
		slog.Int("bids", len(ob.Bids)),
		slog.Int("asks", len(ob.Asks)),
	)

	if r.cache != nil {
		if err := r.cache.PublishSnapshot(ctx, ob); err != nil {
			r.logger.Warn("book publish failed",
				slog.String("pair", pair),
				slog.String("error", err.Error()),
			)
		}
	}
	if r.archiver != nil && len(payload) > 0 {
		if err := r.archiver.ArchiveSnapshot(ctx, pair, payload, time.Now().UTC()); err != nil {
			r.logger.Warn("snapshot archive failed",
				slog.String("pair", pair),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

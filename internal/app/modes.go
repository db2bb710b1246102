package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/flipfeed/internal/domain"
	"github.com/alanyoungcy/flipfeed/internal/feed"
	"github.com/alanyoungcy/flipfeed/internal/platform/chainflip"
)

// statusProbeInterval is how often the node connectivity probe runs.
const statusProbeInterval = time.Minute

// FeedMode runs the streaming pipeline: the asset registry refresher, the
// WebSocket subscription loop with its snapshot rebuilder, the event drain,
// and the connectivity probe.
func (a *App) FeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting feed mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startRegistryLoop(ctx, g, deps)
	a.startSubscription(ctx, g, deps)
	a.startStatusProbe(ctx, g, deps)

	return g.Wait()
}

// RecordMode runs the polling pipeline without a WebSocket subscription:
// books are rebuilt on a timer and every rebuild is archived, while the
// catalog sync keeps the asset and market tables current.
func (a *App) RecordMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting record mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startRegistryLoop(ctx, g, deps)
	a.startRebuildLoop(ctx, g, deps)
	a.startCatalogSync(ctx, g, deps)
	a.startStatusProbe(ctx, g, deps)

	return g.Wait()
}

// FullMode runs everything: the streaming pipeline plus catalog
// persistence. Snapshot archival rides on the subscription loop's rebuilds.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startRegistryLoop(ctx, g, deps)
	a.startSubscription(ctx, g, deps)
	a.startCatalogSync(ctx, g, deps)
	a.startStatusProbe(ctx, g, deps)

	return g.Wait()
}

// startRegistryLoop refreshes the asset universe once at startup and then on
// a timer. A failed refresh keeps the cached universe, so it is logged and
// not fatal.
func (a *App) startRegistryLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	interval := a.cfg.Feed.RegistryRefreshInterval.Duration

	g.Go(func() error {
		if _, err := deps.Registry.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.WarnContext(ctx, "initial registry refresh failed",
				slog.String("error", err.Error()),
			)
		}
		if interval <= 0 {
			<-ctx.Done()
			return ctx.Err()
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := deps.Registry.Refresh(ctx); err != nil && ctx.Err() == nil {
					a.logger.WarnContext(ctx, "registry refresh failed",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	})
}

// startSubscription starts the WebSocket subscription loop and the goroutine
// draining its event channel.
func (a *App) startSubscription(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	streams := []chainflip.StreamRequest{
		{Stream: chainflip.StreamOrders},
		{Stream: chainflip.StreamTrades},
	}
	if a.cfg.Chainflip.Address != "" {
		streams = append(streams, chainflip.StreamRequest{Stream: chainflip.StreamBalances})
	}

	dial := func(ctx context.Context, streams ...chainflip.StreamRequest) (feed.Stream, error) {
		return deps.Executor.Subscribe(ctx, streams...)
	}

	loop := feed.NewLoop(dial, a.newRebuilder(deps), feed.Config{
		Streams:         streams,
		RebuildInterval: a.cfg.Feed.RebuildInterval.Duration,
		MaxRetries:      a.cfg.Feed.MaxRetries,
		InitialBackoff:  a.cfg.Feed.InitialBackoff.Duration,
		MaxBackoff:      a.cfg.Feed.MaxBackoff.Duration,
		EventBuffer:     a.cfg.Feed.EventBuffer,
	}, a.logger)

	g.Go(func() error {
		return loop.Run(ctx)
	})
	g.Go(func() error {
		a.drainEvents(ctx, deps, loop)
		return nil
	})
}

// startRebuildLoop rebuilds books on a timer. Used by record mode, where no
// subscription loop drives rebuilds.
func (a *App) startRebuildLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	rebuilder := a.newRebuilder(deps)
	interval := a.cfg.Feed.RebuildInterval.Duration
	if interval <= 0 {
		interval = time.Minute
	}

	g.Go(func() error {
		if err := rebuilder.Rebuild(ctx); err != nil && ctx.Err() == nil {
			a.logger.WarnContext(ctx, "initial rebuild incomplete", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := rebuilder.Rebuild(ctx); err != nil && ctx.Err() == nil {
					a.logger.WarnContext(ctx, "rebuild incomplete", slog.String("error", err.Error()))
				}
			}
		}
	})
}

// startCatalogSync persists the advertised assets and markets on a timer.
func (a *App) startCatalogSync(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.CatalogStore == nil {
		return
	}
	interval := a.cfg.Feed.CatalogSyncInterval.Duration
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	g.Go(func() error {
		if err := a.syncCatalog(ctx, deps); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.WarnContext(ctx, "catalog sync failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := a.syncCatalog(ctx, deps); err != nil && ctx.Err() == nil {
					a.logger.WarnContext(ctx, "catalog sync failed", slog.String("error", err.Error()))
				}
			}
		}
	})
}

// syncCatalog upserts the current asset and market universe. A distributed
// lock keeps the sync single-writer when replicas share a Redis; a held lock
// means another replica is already syncing, not a failure. Empty fetch
// results are skipped so a degraded node never wipes freshness timestamps
// with partial data.
func (a *App) syncCatalog(ctx context.Context, deps *Dependencies) error {
	unlock, err := deps.Locks.Acquire(ctx, "catalog_sync", 5*time.Minute)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.DebugContext(ctx, "catalog sync already running elsewhere")
			return nil
		}
		return fmt.Errorf("acquire catalog lock: %w", err)
	}
	defer unlock()

	assets, err := deps.Executor.AllAssets(ctx)
	if err != nil {
		return fmt.Errorf("fetch assets: %w", err)
	}
	if len(assets) > 0 {
		if err := deps.CatalogStore.UpsertAssets(ctx, assets); err != nil {
			return err
		}
	}

	markets, err := deps.Executor.AllMarkets(ctx)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}
	if len(markets) > 0 {
		if err := deps.CatalogStore.UpsertMarkets(ctx, markets); err != nil {
			return err
		}
	}

	a.logger.DebugContext(ctx, "catalog synced",
		slog.Int("assets", len(assets)),
		slog.Int("markets", len(markets)),
	)
	return nil
}

// startStatusProbe periodically checks node connectivity and logs when the
// node stops responding.
func (a *App) startStatusProbe(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	g.Go(func() error {
		ticker := time.NewTicker(statusProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				ok, err := deps.Executor.CheckConnectionStatus(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					continue
				}
				if !ok {
					a.logger.WarnContext(ctx, "node connectivity probe failed")
				}
			}
		}
	})
}

// newRebuilder builds the snapshot rebuilder for the configured pairs. The
// archiver is only attached when the mode wired one.
func (a *App) newRebuilder(deps *Dependencies) *feed.Rebuilder {
	return feed.NewRebuilder(
		a.cfg.Feed.Pairs,
		deps.Executor,
		deps.Registry,
		deps.Builder,
		deps.Keeper,
		deps.BookCache,
		deps.Archiver,
		a.logger,
	)
}

// drainEvents consumes the subscription loop's event channel until it is
// closed, publishing each event to the event bus and logging it. Arrival
// order is preserved; unrecognized frames pass through at debug level with
// their payload size.
func (a *App) drainEvents(ctx context.Context, deps *Dependencies, loop *feed.Loop) {
	for ev := range loop.Events() {
		if err := deps.EventSink.PublishEvent(ctx, ev); err != nil && ctx.Err() == nil {
			a.logger.WarnContext(ctx, "event publish failed",
				slog.Uint64("seq", ev.Seq),
				slog.String("error", err.Error()),
			)
		}
		switch ev.Type {
		case domain.EventOrderUpdate:
			a.logger.InfoContext(ctx, "order update",
				slog.Uint64("seq", ev.Seq),
				slog.String("order_id", ev.Order.ID),
				slog.String("pair", ev.Order.Pair),
				slog.String("side", string(ev.Order.Side)),
				slog.String("status", string(ev.Order.Status)),
				slog.String("filled", ev.Order.FilledQuantity.String()),
			)
		case domain.EventTradeUpdate:
			a.logger.InfoContext(ctx, "trade update",
				slog.Uint64("seq", ev.Seq),
				slog.String("trade_id", ev.Trade.TradeID),
				slog.String("order_id", ev.Trade.OrderID),
				slog.String("pair", ev.Trade.Pair),
				slog.String("side", string(ev.Trade.Side)),
				slog.String("price", ev.Trade.Price.String()),
				slog.String("amount", ev.Trade.Amount.String()),
			)
		case domain.EventBalanceUpdate:
			a.logger.InfoContext(ctx, "balance update",
				slog.Uint64("seq", ev.Seq),
				slog.Int("assets", len(ev.Balances)),
			)
		default:
			a.logger.DebugContext(ctx, "unrecognized stream event",
				slog.Uint64("seq", ev.Seq),
				slog.Int("bytes", len(ev.Raw)),
			)
		}
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/flipfeed/internal/blob/s3"
	"github.com/alanyoungcy/flipfeed/internal/book"
	"github.com/alanyoungcy/flipfeed/internal/cache/redis"
	"github.com/alanyoungcy/flipfeed/internal/config"
	"github.com/alanyoungcy/flipfeed/internal/crypto"
	"github.com/alanyoungcy/flipfeed/internal/domain"
	"github.com/alanyoungcy/flipfeed/internal/platform/chainflip"
	"github.com/alanyoungcy/flipfeed/internal/registry"
	"github.com/alanyoungcy/flipfeed/internal/store/postgres"
)

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	Executor *chainflip.Executor
	Registry *registry.Registry
	Builder  *book.Builder
	Keeper   *book.Keeper

	BookCache    domain.BookCache
	EventSink    domain.EventSink
	Locks        domain.LockManager
	CatalogStore domain.CatalogStore
	Archiver     domain.SnapshotArchiver
}

// needsPostgres returns true for modes that persist the asset catalog.
func needsPostgres(mode string) bool {
	return mode == "record" || mode == "full"
}

// needsS3 returns true for modes that archive raw snapshots.
func needsS3(mode string) bool {
	return mode == "record" || mode == "full"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Credentials ---
	// Resolve the signing key up front so a bad password or missing key file
	// fails at startup rather than mid-run. Market-data-only deployments set
	// neither source and skip this.
	if cfg.Chainflip.SigningKey != "" || cfg.Chainflip.EncryptedKeyPath != "" {
		if _, err := crypto.LoadKey(crypto.KeyConfig{
			RawKey:           cfg.Chainflip.SigningKey,
			EncryptedKeyPath: cfg.Chainflip.EncryptedKeyPath,
			KeyPassword:      cfg.Chainflip.KeyPassword,
		}); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signing key: %w", err)
		}
		logger.Info("signing key resolved")
	}

	// --- Chainflip executor ---
	deps.Executor = chainflip.NewExecutor(chainflip.ExecutorConfig{
		RPCURL:   cfg.Chainflip.RPCURL,
		LPAPIURL: cfg.Chainflip.LPAPIURL,
		WSURL:    cfg.Chainflip.WSURL,
		Address:  cfg.Chainflip.Address,
		Timeout:  cfg.Chainflip.RequestTimeout.Duration,
	}, logger)

	// --- Asset registry and book pipeline ---
	deps.Registry = registry.New(deps.Executor, cfg.Feed.ChainOverrides, logger)
	deps.Builder = book.NewBuilder(chainflip.AssetDecimals)
	deps.Keeper = book.NewKeeper()

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.BookCache = redis.NewBookCache(redisClient)
	deps.EventSink = redis.NewEventBus(redisClient)
	deps.Locks = redis.NewLockManager(redisClient, logger)

	// --- PostgreSQL (only for modes that persist the catalog) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.CatalogStore = postgres.NewCatalogStore(pgClient.Pool())
	}

	// --- S3 blob storage (only for modes that archive snapshots) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.Archiver = s3blob.NewSnapshotArchiver(s3Client)
	}

	return deps, cleanup, nil
}

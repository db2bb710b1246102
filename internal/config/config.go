// Package config defines the top-level configuration for the flipfeed
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FLIPFEED_* environment variables.
type Config struct {
	Chainflip ChainflipConfig `toml:"chainflip"`
	Feed      FeedConfig      `toml:"feed"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ChainflipConfig holds node endpoints and liquidity provider credentials.
type ChainflipConfig struct {
	// RPCURL is the state chain node RPC endpoint (cf_* methods).
	RPCURL string `toml:"rpc_url"`
	// LPAPIURL is the LP API endpoint (lp_* methods).
	LPAPIURL string `toml:"lp_api_url"`
	// WSURL is the LP API WebSocket endpoint for subscriptions.
	WSURL string `toml:"ws_url"`
	// Address is the LP account address. Optional: without it the service
	// runs in market-data-only mode and skips account streams.
	Address string `toml:"address"`

	// SigningKey is the hex-encoded LP signing key. Prefer the encrypted
	// file via EncryptedKeyPath in anything but local development.
	SigningKey       string `toml:"signing_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`

	RequestTimeout duration `toml:"request_timeout"`
}

// FeedConfig holds market data pipeline parameters.
type FeedConfig struct {
	// Pairs lists the trading pairs to track, e.g. "ETH-USDC".
	Pairs []string `toml:"pairs"`
	// ChainOverrides pins ambiguous symbols to a chain, e.g. USDC = "Arbitrum".
	ChainOverrides map[string]string `toml:"chain_overrides"`

	RebuildInterval         duration `toml:"rebuild_interval"`
	RegistryRefreshInterval duration `toml:"registry_refresh_interval"`
	CatalogSyncInterval     duration `toml:"catalog_sync_interval"`

	MaxRetries     int      `toml:"max_retries"`
	InitialBackoff duration `toml:"initial_backoff"`
	MaxBackoff     duration `toml:"max_backoff"`
	EventBuffer    int      `toml:"event_buffer"`
}

// PostgresConfig holds PostgreSQL connection parameters for the catalog store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the book publisher.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the snapshot
// archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chainflip: ChainflipConfig{
			RPCURL:         "http://localhost:9944",
			LPAPIURL:       "http://localhost:10589",
			WSURL:          "ws://localhost:10589",
			RequestTimeout: duration{30 * time.Second},
		},
		Feed: FeedConfig{
			Pairs:                   []string{"ETH-USDC"},
			ChainOverrides:          map[string]string{},
			RebuildInterval:         duration{time.Minute},
			RegistryRefreshInterval: duration{10 * time.Minute},
			CatalogSyncInterval:     duration{15 * time.Minute},
			MaxRetries:              5,
			InitialBackoff:          duration{time.Second},
			MaxBackoff:              duration{30 * time.Second},
			EventBuffer:             256,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "flipfeed",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "flipfeed-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Mode:     "feed",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
//
//	feed   - stream books and events, publish to Redis
//	record - feed plus raw snapshot archival and catalog persistence
//	full   - everything
var validModes = map[string]bool{
	"feed":   true,
	"record": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: feed, record, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chainflip endpoints
	if c.Chainflip.RPCURL == "" {
		errs = append(errs, "chainflip: rpc_url must not be empty")
	}
	if c.Chainflip.LPAPIURL == "" {
		errs = append(errs, "chainflip: lp_api_url must not be empty")
	}
	if c.Chainflip.WSURL == "" {
		errs = append(errs, "chainflip: ws_url must not be empty")
	}
	if c.Chainflip.EncryptedKeyPath != "" && c.Chainflip.KeyPassword == "" {
		errs = append(errs, "chainflip: key_password is required when encrypted_key_path is set")
	}
	if c.Chainflip.RequestTimeout.Duration <= 0 {
		errs = append(errs, "chainflip: request_timeout must be > 0")
	}

	// Feed
	if len(c.Feed.Pairs) == 0 {
		errs = append(errs, "feed: at least one pair must be configured")
	}
	for _, p := range c.Feed.Pairs {
		if len(strings.Split(p, "-")) != 2 {
			errs = append(errs, fmt.Sprintf("feed: pair %q must be BASE-QUOTE", p))
		}
	}
	if c.Feed.MaxRetries < 1 {
		errs = append(errs, "feed: max_retries must be >= 1")
	}
	if c.Feed.InitialBackoff.Duration <= 0 {
		errs = append(errs, "feed: initial_backoff must be > 0")
	}
	if c.Feed.MaxBackoff.Duration < c.Feed.InitialBackoff.Duration {
		errs = append(errs, "feed: max_backoff must be >= initial_backoff")
	}

	// Redis backs the book publisher in every mode.
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres and S3 only matter when recording.
	if mode == "record" || mode == "full" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

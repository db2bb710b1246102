package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FLIPFEED_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FLIPFEED_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Chainflip ──
	setStr(&cfg.Chainflip.RPCURL, "FLIPFEED_CHAINFLIP_RPC_URL")
	setStr(&cfg.Chainflip.LPAPIURL, "FLIPFEED_CHAINFLIP_LP_API_URL")
	setStr(&cfg.Chainflip.WSURL, "FLIPFEED_CHAINFLIP_WS_URL")
	setStr(&cfg.Chainflip.Address, "FLIPFEED_CHAINFLIP_ADDRESS")
	setStr(&cfg.Chainflip.SigningKey, "FLIPFEED_CHAINFLIP_SIGNING_KEY")
	setStr(&cfg.Chainflip.EncryptedKeyPath, "FLIPFEED_CHAINFLIP_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Chainflip.KeyPassword, "FLIPFEED_CHAINFLIP_KEY_PASSWORD")
	setDuration(&cfg.Chainflip.RequestTimeout, "FLIPFEED_CHAINFLIP_REQUEST_TIMEOUT")

	// ── Feed ──
	setStringSlice(&cfg.Feed.Pairs, "FLIPFEED_FEED_PAIRS")
	setDuration(&cfg.Feed.RebuildInterval, "FLIPFEED_FEED_REBUILD_INTERVAL")
	setDuration(&cfg.Feed.RegistryRefreshInterval, "FLIPFEED_FEED_REGISTRY_REFRESH_INTERVAL")
	setDuration(&cfg.Feed.CatalogSyncInterval, "FLIPFEED_FEED_CATALOG_SYNC_INTERVAL")
	setInt(&cfg.Feed.MaxRetries, "FLIPFEED_FEED_MAX_RETRIES")
	setDuration(&cfg.Feed.InitialBackoff, "FLIPFEED_FEED_INITIAL_BACKOFF")
	setDuration(&cfg.Feed.MaxBackoff, "FLIPFEED_FEED_MAX_BACKOFF")
	setInt(&cfg.Feed.EventBuffer, "FLIPFEED_FEED_EVENT_BUFFER")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "FLIPFEED_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "FLIPFEED_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FLIPFEED_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FLIPFEED_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FLIPFEED_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FLIPFEED_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FLIPFEED_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FLIPFEED_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FLIPFEED_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FLIPFEED_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FLIPFEED_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FLIPFEED_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FLIPFEED_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FLIPFEED_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FLIPFEED_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FLIPFEED_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FLIPFEED_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FLIPFEED_S3_REGION")
	setStr(&cfg.S3.Bucket, "FLIPFEED_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FLIPFEED_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FLIPFEED_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FLIPFEED_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FLIPFEED_S3_FORCE_PATH_STYLE")

	// ── Top-level ──
	setStr(&cfg.Mode, "FLIPFEED_MODE")
	setStr(&cfg.LogLevel, "FLIPFEED_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRecordModeRequiresStores(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "record"
	cfg.Postgres.Host = ""
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: host")
	assert.Contains(t, err.Error(), "s3: bucket")
}

func TestValidateFeedModeSkipsStores(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	cfg.S3.Bucket = ""

	assert.NoError(t, cfg.Validate())
}

func TestValidateDSNReplacesHostFields(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "full"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/flipfeed"

	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.LogLevel = "loud"
	cfg.Chainflip.RPCURL = ""
	cfg.Feed.Pairs = []string{"ETHUSDC"}
	cfg.Feed.MaxRetries = 0
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "turbo"`,
		`unknown log_level "loud"`,
		"chainflip: rpc_url",
		`pair "ETHUSDC"`,
		"feed: max_retries",
		"redis: addr",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Chainflip.EncryptedKeyPath = "/etc/flipfeed/key.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")

	cfg.Chainflip.KeyPassword = "hunter2"
	assert.NoError(t, cfg.Validate())
}

func TestValidateBackoffOrdering(t *testing.T) {
	cfg := Defaults()
	cfg.Feed.InitialBackoff = duration{10 * time.Second}
	cfg.Feed.MaxBackoff = duration{time.Second}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_backoff")
}

func TestLoadMergesOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "full"
log_level = "debug"

[chainflip]
rpc_url = "http://node:9944"
request_timeout = "10s"

[feed]
pairs = ["ETH-USDC", "BTC-USDC"]
rebuild_interval = "30s"

[feed.chain_overrides]
USDC = "Ethereum"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://node:9944", cfg.Chainflip.RPCURL)
	assert.Equal(t, 10*time.Second, cfg.Chainflip.RequestTimeout.Duration)
	assert.Equal(t, []string{"ETH-USDC", "BTC-USDC"}, cfg.Feed.Pairs)
	assert.Equal(t, 30*time.Second, cfg.Feed.RebuildInterval.Duration)
	assert.Equal(t, "Ethereum", cfg.Feed.ChainOverrides["USDC"])

	// Values the file does not mention keep their defaults.
	assert.Equal(t, "http://localhost:10589", cfg.Chainflip.LPAPIURL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	defaults := Defaults()
	assert.Equal(t, defaults.Mode, cfg.Mode)
	assert.Equal(t, defaults.Chainflip.RPCURL, cfg.Chainflip.RPCURL)
	assert.Equal(t, defaults.Chainflip.RequestTimeout, cfg.Chainflip.RequestTimeout)
	assert.Equal(t, defaults.Feed, cfg.Feed)
	assert.Equal(t, defaults.Postgres, cfg.Postgres)
	assert.Equal(t, defaults.Redis, cfg.Redis)
	assert.Equal(t, defaults.S3, cfg.S3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLIPFEED_MODE", "record")
	t.Setenv("FLIPFEED_REDIS_PASSWORD", "sekret")
	t.Setenv("FLIPFEED_FEED_PAIRS", "ETH-USDC, DOT-USDC ,")
	t.Setenv("FLIPFEED_FEED_MAX_RETRIES", "9")
	t.Setenv("FLIPFEED_CHAINFLIP_REQUEST_TIMEOUT", "45s")
	t.Setenv("FLIPFEED_POSTGRES_RUN_MIGRATIONS", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "record", cfg.Mode)
	assert.Equal(t, "sekret", cfg.Redis.Password)
	assert.Equal(t, []string{"ETH-USDC", "DOT-USDC"}, cfg.Feed.Pairs)
	assert.Equal(t, 9, cfg.Feed.MaxRetries)
	assert.Equal(t, 45*time.Second, cfg.Chainflip.RequestTimeout.Duration)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("FLIPFEED_FEED_MAX_RETRIES", "lots")
	t.Setenv("FLIPFEED_FEED_INITIAL_BACKOFF", "soon")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, Defaults().Feed.MaxRetries, cfg.Feed.MaxRetries)
	assert.Equal(t, time.Second, cfg.Feed.InitialBackoff.Duration)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Chainflip.SigningKey = "deadbeef"
	cfg.Chainflip.KeyPassword = "hunter2"
	cfg.Redis.Password = "sekret"
	cfg.S3.SecretKey = "topsecret"
	cfg.Postgres.Password = "pgpass"
	cfg.Postgres.DSN = "postgres://user:pgpass@db/flipfeed"

	red := RedactedConfig(&cfg)

	out := []string{
		red.Chainflip.SigningKey, red.Chainflip.KeyPassword,
		red.Redis.Password, red.S3.SecretKey, red.Postgres.Password,
	}
	for _, v := range out {
		assert.Equal(t, "***", v)
	}
	assert.NotContains(t, red.Postgres.DSN, "pgpass")

	// The original is untouched.
	assert.Equal(t, "sekret", cfg.Redis.Password)
	assert.False(t, strings.Contains(red.Chainflip.RPCURL, "***"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
owner_env: TEST_VALIDATOR_OWNER
server:
  http:
    addr: ":9000"
  websocket:
    enabled: true
  rate_limit:
    rps: 5
registry:
  backend: Redis
  redis:
    addr: "${TEST_REDIS_ADDR}"
engine:
  concurrency: 4
primary:
  type: evm
  config:
    rpc_url: http://localhost:8545
references:
  - name: anchored
    type: evm
    config:
      rpc_url: http://localhost:8545
      address: "0x50ce56A3239671Ab62f185704Caedf626352741e"
  - name: prices
    type: http
    config:
      url: http://localhost:8080
      decimals: 6
sinks:
  - name: dry-run
    type: log
active:
  reference: prices
bindings:
  - asset: "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
    symbol: ETH
    decimals: 6
    denominator: 20
upkeep:
  enabled: true
  timeout: 10s
`

func TestParseAppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "localhost:6379")
	t.Setenv("TEST_VALIDATOR_OWNER", "hunter2")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout.ToDuration())
	assert.Equal(t, 6, cfg.Server.RateLimit.Burst)
	assert.Equal(t, BackendRedis, cfg.Registry.Backend)
	assert.Equal(t, "localhost:6379", cfg.Registry.Redis.Addr)
	assert.Equal(t, "oracle-validator:bindings", cfg.Registry.Redis.Key)
	assert.Equal(t, 4, cfg.Engine.Concurrency)
	assert.Equal(t, "prices", cfg.Active.Reference)
	assert.Equal(t, "dry-run", cfg.Active.Sink)
	assert.Equal(t, "@every 1m", cfg.Upkeep.Schedule)
	assert.Equal(t, 10*time.Second, cfg.Upkeep.Timeout.ToDuration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 6, cfg.References[1].Config["decimals"])

	require.NoError(t, Validate(cfg))

	owner, err := cfg.OwnerCredential()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", owner)
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "localhost:6379")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.References, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"owner env unset", func(c *Config) { c.OwnerEnv = "TEST_UNSET_OWNER_VAR" }, ErrOwnerEnvNotSet},
		{"no owner", func(c *Config) { c.OwnerEnv = ""; c.Owner = "" }, ErrOwnerRequired},
		{"tls incomplete", func(c *Config) { c.Server.HTTP.TLS.Enabled = true }, ErrTLSConfigIncomplete},
		{"bad backend", func(c *Config) { c.Registry.Backend = "etcd" }, ErrInvalidRegistryBackend},
		{"redis addr", func(c *Config) { c.Registry.Redis.Addr = "" }, ErrRedisAddrRequired},
		{"postgres dsn", func(c *Config) { c.Registry.Backend = BackendPostgres }, ErrPostgresDSNRequired},
		{"primary type", func(c *Config) { c.Primary.Type = "" }, ErrSourceTypeRequired},
		{"no references", func(c *Config) { c.References = nil }, ErrNoReferences},
		{"no sinks", func(c *Config) { c.Sinks = nil }, ErrNoSinks},
		{"unnamed reference", func(c *Config) { c.References[0].Name = "" }, ErrSourceNameRequired},
		{"duplicate reference", func(c *Config) { c.References[1].Name = "anchored" }, ErrDuplicateName},
		{"unknown active", func(c *Config) { c.Active.Sink = "pager" }, ErrUnknownActive},
		{"binding asset", func(c *Config) { c.Bindings[0].Asset = "ETH" }, ErrInvalidAsset},
		{"binding denominator", func(c *Config) { c.Bindings[0].Denominator = 0 }, ErrInvalidBinding},
		{"upkeep asset", func(c *Config) { c.Upkeep.Assets = []string{"0x1"} }, ErrInvalidAsset},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
		{"concurrency", func(c *Config) { c.Engine.Concurrency = -1 }, ErrInvalidConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_REDIS_ADDR", "localhost:6379")
			t.Setenv("TEST_VALIDATOR_OWNER", "hunter2")
			cfg, err := Parse([]byte(sampleConfig))
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestWithLogger(t *testing.T) {
	sc := SourceConfig{Config: map[string]interface{}{"url": "x"}}
	out := sc.WithLogger("logger")
	assert.Equal(t, "x", out["url"])
	assert.Equal(t, "logger", out["logger"])
	_, mutated := sc.Config["logger"]
	assert.False(t, mutated)
}

func TestExampleConfigIsValid(t *testing.T) {
	t.Setenv("VALIDATOR_OWNER_TOKEN", "owner")
	t.Setenv("ETH_RPC_URL", "http://localhost:8545")

	cfg, err := Load(filepath.Join("..", "..", "config", "config.example.yaml"))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "median", cfg.Active.Reference)
	assert.Equal(t, "http://localhost:8545", cfg.Primary.Config["rpc_url"])
	assert.Len(t, cfg.Bindings, 2)

	var median SourceConfig
	for _, rc := range cfg.References {
		if rc.Name == "median" {
			median = rc
		}
	}
	members, ok := median.Config["members"].([]interface{})
	require.True(t, ok)
	assert.Len(t, members, 2)
	assert.Equal(t, 0.1, median.Config["outlier_threshold"])
}

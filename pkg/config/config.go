package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Registry backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands ${ENV} references in data, decodes it and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.RequestTimeout.ToDuration() == 0 {
		cfg.Server.RequestTimeout = Duration(30 * time.Second)
	}
	if cfg.Server.RateLimit.RPS > 0 && cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = int(cfg.Server.RateLimit.RPS) + 1
	}

	// Registry defaults
	if cfg.Registry.Backend == "" {
		cfg.Registry.Backend = BackendMemory
	}
	cfg.Registry.Backend = strings.ToLower(cfg.Registry.Backend)
	if cfg.Registry.Redis.Key == "" {
		cfg.Registry.Redis.Key = "oracle-validator:bindings"
	}
	if cfg.Registry.Postgres.Table == "" {
		cfg.Registry.Postgres.Table = "feed_bindings"
	}

	if cfg.Engine.Concurrency == 0 {
		cfg.Engine.Concurrency = 1
	}

	// A single reference or sink is active without being named.
	if cfg.Active.Reference == "" && len(cfg.References) == 1 {
		cfg.Active.Reference = cfg.References[0].Name
	}
	if cfg.Active.Sink == "" && len(cfg.Sinks) == 1 {
		cfg.Active.Sink = cfg.Sinks[0].Name
	}

	// Upkeep defaults
	if cfg.Upkeep.Schedule == "" {
		cfg.Upkeep.Schedule = "@every 1m"
	}
	if cfg.Upkeep.Timeout.ToDuration() == 0 {
		cfg.Upkeep.Timeout = Duration(45 * time.Second)
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// OwnerCredential returns the administrative credential, preferring owner_env.
func (c *Config) OwnerCredential() (string, error) {
	if c.OwnerEnv != "" {
		v := os.Getenv(c.OwnerEnv)
		if v == "" {
			return "", fmt.Errorf("%w: %s", ErrOwnerEnvNotSet, c.OwnerEnv)
		}
		return v, nil
	}
	if c.Owner == "" {
		return "", ErrOwnerRequired
	}
	return c.Owner, nil
}

// RedisPassword returns the redis password from registry.redis.password_env, if any.
func (c *Config) RedisPassword() string {
	if c.Registry.Redis.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.Registry.Redis.PasswordEnv)
}

// WithLogger returns a copy of the collaborator config carrying logger under "logger".
func (sc *SourceConfig) WithLogger(logger interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(sc.Config)+1)
	for k, v := range sc.Config {
		out[k] = v
	}
	out["logger"] = logger
	return out
}

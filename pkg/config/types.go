package config

import "time"

// Config is the root configuration structure
type Config struct {
	// Owner is the administrative credential. OwnerEnv names an environment
	// variable holding it instead.
	Owner    string `yaml:"owner"`
	OwnerEnv string `yaml:"owner_env"`

	Server     ServerConfig    `yaml:"server"`
	Registry   RegistryConfig  `yaml:"registry"`
	Engine     EngineConfig    `yaml:"engine"`
	Primary    SourceConfig    `yaml:"primary"`
	References []SourceConfig  `yaml:"references"`
	Sinks      []SourceConfig  `yaml:"sinks"`
	Active     ActiveConfig    `yaml:"active"`
	Bindings   []BindingConfig `yaml:"bindings"`
	Upkeep     UpkeepConfig    `yaml:"upkeep"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	HTTP           HTTPConfig      `yaml:"http"`
	WebSocket      WSConfig        `yaml:"websocket"`
	RequestTimeout Duration        `yaml:"request_timeout"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string    `yaml:"addr"`
	TLS  TLSConfig `yaml:"tls"`
}

// WSConfig enables the /v1/events stream
type WSConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TLSConfig holds TLS certificate configuration
type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

// RateLimitConfig configures per-client request limiting. Zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// RegistryConfig selects the binding store
type RegistryConfig struct {
	Backend  string         `yaml:"backend"` // memory, redis, postgres
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig configures the redis binding store
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	Key         string `yaml:"key"`
}

// PostgresConfig configures the postgres binding store
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// EngineConfig tunes batch evaluation
type EngineConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// SourceConfig configures a named collaborator (primary, reference or sink)
type SourceConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// ActiveConfig names the initially active reference source and flag sink
type ActiveConfig struct {
	Reference string `yaml:"reference"`
	Sink      string `yaml:"sink"`
}

// BindingConfig seeds a feed binding at startup
type BindingConfig struct {
	Asset       string `yaml:"asset"`
	Symbol      string `yaml:"symbol"`
	Decimals    uint8  `yaml:"decimals"`
	Denominator uint32 `yaml:"denominator"`
}

// UpkeepConfig configures the scheduled check/perform loop
type UpkeepConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Schedule string   `yaml:"schedule"`
	Timeout  Duration `yaml:"timeout"`
	Assets   []string `yaml:"assets"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

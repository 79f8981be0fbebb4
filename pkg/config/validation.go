package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if _, err := cfg.OwnerCredential(); err != nil {
		return err
	}

	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateRegistryConfig(&cfg.Registry); err != nil {
		return fmt.Errorf("registry config: %w", err)
	}

	if cfg.Engine.Concurrency < 0 {
		return ErrInvalidConcurrency
	}

	if err := validateSourceConfig(&cfg.Primary, false); err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	if err := validateNamed("references", cfg.References, cfg.Active.Reference, ErrNoReferences); err != nil {
		return err
	}
	if err := validateNamed("sinks", cfg.Sinks, cfg.Active.Sink, ErrNoSinks); err != nil {
		return err
	}

	for i, b := range cfg.Bindings {
		if err := validateBinding(&b); err != nil {
			return fmt.Errorf("bindings[%d]: %w", i, err)
		}
	}

	if err := validateUpkeepConfig(&cfg.Upkeep); err != nil {
		return fmt.Errorf("upkeep config: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.Cert == "" || cfg.HTTP.TLS.Key == "" {
			return ErrTLSConfigIncomplete
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Cert); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSCertNotFound, cfg.HTTP.TLS.Cert)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Key); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSKeyNotFound, cfg.HTTP.TLS.Key)
		}
	}

	if cfg.RateLimit.RPS < 0 || cfg.RateLimit.Burst < 0 {
		return ErrInvalidRateLimit
	}

	return nil
}

func validateRegistryConfig(cfg *RegistryConfig) error {
	switch cfg.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return ErrRedisAddrRequired
		}
	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return ErrPostgresDSNRequired
		}
	default:
		return fmt.Errorf("%w: %s (must be 'memory', 'redis', or 'postgres')", ErrInvalidRegistryBackend, cfg.Backend)
	}
	return nil
}

func validateSourceConfig(cfg *SourceConfig, named bool) error {
	if cfg.Type == "" {
		return ErrSourceTypeRequired
	}
	if named && cfg.Name == "" {
		return ErrSourceNameRequired
	}
	return nil
}

// validateNamed checks a list of named collaborators and that active names one of them.
func validateNamed(section string, list []SourceConfig, active string, errEmpty error) error {
	if len(list) == 0 {
		return errEmpty
	}
	seen := make(map[string]bool, len(list))
	for i := range list {
		if err := validateSourceConfig(&list[i], true); err != nil {
			return fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		if seen[list[i].Name] {
			return fmt.Errorf("%s[%d]: %w: %s", section, i, ErrDuplicateName, list[i].Name)
		}
		seen[list[i].Name] = true
	}
	if !seen[active] {
		return fmt.Errorf("%s: %w: %q", section, ErrUnknownActive, active)
	}
	return nil
}

func validateBinding(b *BindingConfig) error {
	if !common.IsHexAddress(b.Asset) {
		return fmt.Errorf("%w: %q", ErrInvalidAsset, b.Asset)
	}
	if strings.TrimSpace(b.Symbol) == "" || b.Denominator == 0 {
		return fmt.Errorf("%w: symbol and denominator are required", ErrInvalidBinding)
	}
	return nil
}

func validateUpkeepConfig(cfg *UpkeepConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Schedule == "" {
		return ErrScheduleRequired
	}
	for i, a := range cfg.Assets {
		if !common.IsHexAddress(a) {
			return fmt.Errorf("assets[%d]: %w: %q", i, ErrInvalidAsset, a)
		}
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	format := strings.ToLower(cfg.Format)
	if format != "json" && format != "text" {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}

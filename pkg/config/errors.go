// Package config provides configuration loading and validation for the price validator.
package config

import "errors"

var (
	// ErrOwnerRequired indicates that neither owner nor owner_env yields a credential.
	ErrOwnerRequired = errors.New("owner credential is required")
	// ErrOwnerEnvNotSet indicates that the owner environment variable is not set.
	ErrOwnerEnvNotSet = errors.New("owner environment variable not set")
	// ErrTLSConfigIncomplete indicates that TLS config is incomplete.
	ErrTLSConfigIncomplete = errors.New("TLS cert and key must be specified when TLS is enabled")
	// ErrTLSCertNotFound indicates that the TLS cert file was not found.
	ErrTLSCertNotFound = errors.New("TLS cert file not found")
	// ErrTLSKeyNotFound indicates that the TLS key file was not found.
	ErrTLSKeyNotFound = errors.New("TLS key file not found")
	// ErrInvalidRateLimit indicates a negative rate limit.
	ErrInvalidRateLimit = errors.New("rate limit must be >= 0")
	// ErrInvalidRegistryBackend indicates an unknown registry backend.
	ErrInvalidRegistryBackend = errors.New("invalid registry backend")
	// ErrRedisAddrRequired indicates that registry.redis.addr must be specified.
	ErrRedisAddrRequired = errors.New("registry.redis.addr must be specified")
	// ErrPostgresDSNRequired indicates that registry.postgres.dsn must be specified.
	ErrPostgresDSNRequired = errors.New("registry.postgres.dsn must be specified")
	// ErrInvalidConcurrency indicates a negative engine concurrency.
	ErrInvalidConcurrency = errors.New("engine.concurrency must be >= 0")
	// ErrSourceTypeRequired indicates that source type is required.
	ErrSourceTypeRequired = errors.New("type is required")
	// ErrSourceNameRequired indicates that source name is required.
	ErrSourceNameRequired = errors.New("name is required")
	// ErrDuplicateName indicates two collaborators sharing a name.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrNoReferences indicates that no reference source is configured.
	ErrNoReferences = errors.New("at least one reference source must be configured")
	// ErrNoSinks indicates that no flag sink is configured.
	ErrNoSinks = errors.New("at least one flag sink must be configured")
	// ErrUnknownActive indicates an active handle that names no configured collaborator.
	ErrUnknownActive = errors.New("active handle is not configured")
	// ErrInvalidAsset indicates an asset that is not a hex address.
	ErrInvalidAsset = errors.New("invalid asset address")
	// ErrInvalidBinding indicates a seeded binding without symbol or denominator.
	ErrInvalidBinding = errors.New("invalid binding")
	// ErrScheduleRequired indicates that upkeep.schedule must be specified.
	ErrScheduleRequired = errors.New("upkeep.schedule must be specified")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Package upkeep adapts the validator to the check/perform protocol of automation networks.
package upkeep

import "errors"

var (
	// ErrInvalidPayload indicates bytes that do not decode as an ABI address[].
	ErrInvalidPayload = errors.New("invalid upkeep payload")
	// ErrInvalidSchedule indicates a cron expression that cannot be parsed.
	ErrInvalidSchedule = errors.New("invalid upkeep schedule")
)

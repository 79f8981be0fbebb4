// Package sources defines the primary and reference price capabilities the validator consumes.
package sources

import "errors"

var (
	// ErrUnknownSourceType indicates that no factory is registered for the type.
	ErrUnknownSourceType = errors.New("unknown source type")
	// ErrInvalidConfig indicates that the source configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoPrice indicates that a static source has no answer for an asset.
	ErrNoPrice = errors.New("no price for asset")
)

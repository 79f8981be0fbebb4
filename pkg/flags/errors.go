// Package flags forwards sets of invalid assets to a flag sink.
package flags

import "errors"

var (
	// ErrUnknownSinkType indicates that no factory is registered for the type.
	ErrUnknownSinkType = errors.New("unknown sink type")
	// ErrInvalidConfig indicates that the sink configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnexpectedStatus indicates that a webhook answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected webhook status")
	// ErrTransactionFailed indicates that a raiseFlags transaction reverted.
	ErrTransactionFailed = errors.New("raiseFlags transaction failed")
)

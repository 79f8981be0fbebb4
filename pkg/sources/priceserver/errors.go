// Package priceserver provides a reference source backed by an oracle price server.
package priceserver

import "errors"

var (
	// ErrURLRequired indicates that the url configuration is required.
	ErrURLRequired = errors.New("url is required")
	// ErrUnexpectedStatus indicates that the price server returned a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected status from price server")
	// ErrNegativePrice indicates that the price server returned a negative price.
	ErrNegativePrice = errors.New("negative price from price server")
)

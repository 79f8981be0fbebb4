// Package fixedpoint rescales fixed-point price magnitudes to a common decimal scale.
package fixedpoint

import "errors"

var (
	// ErrArithmeticOverflow indicates that a rescaled magnitude left the 256-bit unsigned range.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrNegativePrice indicates that a signed feed answer was below zero.
	ErrNegativePrice = errors.New("negative price")
	// ErrNilMagnitude indicates that a price point carried no magnitude.
	ErrNilMagnitude = errors.New("nil magnitude")
)

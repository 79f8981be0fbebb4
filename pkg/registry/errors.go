// Package registry stores the reference-feed binding of every tracked asset.
package registry

import "errors"

var (
	// ErrInvalidTolerance indicates a registration with a zero tolerance denominator.
	ErrInvalidTolerance = errors.New("invalid tolerance denominator")
	// ErrInvalidReferencePrice indicates that the reference source reports no price for the symbol.
	ErrInvalidReferencePrice = errors.New("invalid reference price")
	// ErrReferenceUnavailable indicates that the reference source could not be queried.
	ErrReferenceUnavailable = errors.New("reference source unavailable")
	// ErrStoreFailure indicates that the binding store could not be read or written.
	ErrStoreFailure = errors.New("binding store failure")
	// ErrEmptySymbol indicates a registration without a reference symbol.
	ErrEmptySymbol = errors.New("reference symbol is empty")
	// ErrInvalidTableName indicates a postgres table name that is not a plain identifier.
	ErrInvalidTableName = errors.New("invalid table name")
	// ErrCorruptBinding indicates a stored binding that could not be decoded.
	ErrCorruptBinding = errors.New("corrupt binding")
)

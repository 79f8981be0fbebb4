// Package validator checks primary feeds against reference prices and flags the ones that deviate.
package validator

import (
	"errors"

	"github.com/StrathCole/oracle-validator/pkg/fixedpoint"
	"github.com/StrathCole/oracle-validator/pkg/registry"
)

var (
	// ErrCollaboratorFailure indicates that the registry store, primary source,
	// reference source or flag sink failed. The cause is wrapped.
	ErrCollaboratorFailure = errors.New("collaborator failure")
	// ErrUnauthorized indicates an administrative call by a caller other than the owner.
	ErrUnauthorized = errors.New("caller is not the owner")
	// ErrUnknownHandle indicates a collaborator handle that is not configured.
	ErrUnknownHandle = errors.New("unknown collaborator handle")

	// ErrNegativePrice indicates a negative primary or reference answer.
	ErrNegativePrice = fixedpoint.ErrNegativePrice
	// ErrArithmeticOverflow indicates that aligning two prices left the 256-bit range.
	ErrArithmeticOverflow = fixedpoint.ErrArithmeticOverflow
	// ErrInvalidTolerance indicates a binding with a zero tolerance denominator.
	ErrInvalidTolerance = registry.ErrInvalidTolerance
	// ErrInvalidReferencePrice indicates a binding whose symbol has no reference price.
	ErrInvalidReferencePrice = registry.ErrInvalidReferencePrice
)

// Package aggregate provides a reference source that combines several other references.
package aggregate

import "errors"

var (
	// ErrNoMembers indicates a median reference without member sources.
	ErrNoMembers = errors.New("median reference needs at least one member")
	// ErrUnknownMember indicates a member name that is not a configured reference.
	ErrUnknownMember = errors.New("unknown member reference")
	// ErrMembersFailed indicates that no member produced a price and at least one failed.
	ErrMembersFailed = errors.New("member references failed")
	// ErrQuorumNotMet indicates that too few members answered.
	ErrQuorumNotMet = errors.New("not enough member prices")
)

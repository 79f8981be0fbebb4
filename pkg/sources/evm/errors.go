// Package evm provides primary and reference sources backed by EVM contract calls.
package evm

import "errors"

var (
	// ErrRPCURLRequired indicates that rpc_url configuration is required.
	ErrRPCURLRequired = errors.New("rpc_url is required")
	// ErrAddressRequired indicates that a contract address is required.
	ErrAddressRequired = errors.New("contract address is required")
	// ErrUnexpectedOutput indicates that a contract returned data of an unexpected shape.
	ErrUnexpectedOutput = errors.New("unexpected contract output")
)

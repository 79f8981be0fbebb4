package sources

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PrimarySource returns the latest signed answer of the feed being validated,
// together with the feed's native decimal count.
type PrimarySource interface {
	LatestPrice(ctx context.Context, asset common.Address) (*big.Int, uint8, error)
}

// ReferenceSource returns the unsigned price of a symbol. Decimals are supplied
// out of band by the binding. Zero means no price is available.
type ReferenceSource interface {
	Price(ctx context.Context, symbol string) (*big.Int, error)
}

// PrimaryFunc adapts a function to the PrimarySource interface.
type PrimaryFunc func(ctx context.Context, asset common.Address) (*big.Int, uint8, error)

// LatestPrice implements PrimarySource.
func (f PrimaryFunc) LatestPrice(ctx context.Context, asset common.Address) (*big.Int, uint8, error) {
	return f(ctx, asset)
}

// ReferenceFunc adapts a function to the ReferenceSource interface.
type ReferenceFunc func(ctx context.Context, symbol string) (*big.Int, error)

// Price implements ReferenceSource.
func (f ReferenceFunc) Price(ctx context.Context, symbol string) (*big.Int, error) {
	return f(ctx, symbol)
}

// Package deviation decides whether two aligned price magnitudes diverge beyond a tolerance.
package deviation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrZeroDenominator indicates a tolerance denominator of zero.
var ErrZeroDenominator = errors.New("tolerance denominator is zero")

// ExceedsThreshold reports whether the reference deviates from the primary by at
// least primary/denominator. The threshold is always taken from the primary
// magnitude, so the check is asymmetric. Identical magnitudes never deviate; a
// zero primary against any nonzero reference always does.
func ExceedsThreshold(alignedPrimary, alignedReference *big.Int, denominator uint32) (bool, error) {
	if denominator == 0 {
		return false, fmt.Errorf("%w", ErrZeroDenominator)
	}

	delta := new(big.Int).Sub(alignedPrimary, alignedReference)
	delta.Abs(delta)
	if delta.Sign() == 0 {
		return false, nil
	}

	threshold := new(big.Int).Quo(alignedPrimary, new(big.Int).SetUint64(uint64(denominator)))
	return delta.Cmp(threshold) >= 0, nil
}

// Ratio returns |primary-reference| / primary, or zero for a zero primary.
func Ratio(alignedPrimary, alignedReference *big.Int) decimal.Decimal {
	if alignedPrimary.Sign() == 0 {
		return decimal.Zero
	}
	primary := decimal.NewFromBigInt(alignedPrimary, 0)
	reference := decimal.NewFromBigInt(alignedReference, 0)
	return primary.Sub(reference).Abs().Div(primary)
}

// Tolerance returns the allowed deviation fraction 1/denominator.
func Tolerance(denominator uint32) decimal.Decimal {
	if denominator == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(denominator)))
}

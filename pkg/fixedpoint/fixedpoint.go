package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxMagnitude is the largest magnitude an on-chain uint256 can hold.
var MaxMagnitude = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var ten = big.NewInt(10)

// PricePoint is a fixed-point value: Magnitude / 10^Decimals.
type PricePoint struct {
	Magnitude *big.Int
	Decimals  uint8
}

// NewPricePoint builds a PricePoint from a uint64 magnitude.
func NewPricePoint(magnitude uint64, decimals uint8) PricePoint {
	return PricePoint{Magnitude: new(big.Int).SetUint64(magnitude), Decimals: decimals}
}

// FromSigned converts a signed feed answer into an unsigned PricePoint.
// Negative answers are rejected instead of being reinterpreted as huge unsigned values.
func FromSigned(answer *big.Int, decimals uint8) (PricePoint, error) {
	if answer == nil {
		return PricePoint{}, fmt.Errorf("%w", ErrNilMagnitude)
	}
	if answer.Sign() < 0 {
		return PricePoint{}, fmt.Errorf("%w: %s", ErrNegativePrice, answer.String())
	}
	if answer.Cmp(MaxMagnitude) > 0 {
		return PricePoint{}, fmt.Errorf("%w: answer %s", ErrArithmeticOverflow, answer.String())
	}
	return PricePoint{Magnitude: new(big.Int).Set(answer), Decimals: decimals}, nil
}

// Decimal returns the real-valued price.
func (p PricePoint) Decimal() decimal.Decimal {
	if p.Magnitude == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.Magnitude, -int32(p.Decimals))
}

// String renders the real-valued price.
func (p PricePoint) String() string {
	return p.Decimal().String()
}

// Align rescales a and b to the larger of their two decimal counts and returns the
// rescaled magnitudes, which are then directly comparable as integers.
// The inputs are never mutated.
func Align(a, b PricePoint) (*big.Int, *big.Int, error) {
	if a.Magnitude == nil || b.Magnitude == nil {
		return nil, nil, fmt.Errorf("%w", ErrNilMagnitude)
	}

	alignedA := new(big.Int).Set(a.Magnitude)
	alignedB := new(big.Int).Set(b.Magnitude)

	switch {
	case a.Decimals > b.Decimals:
		if err := scale(alignedB, a.Decimals-b.Decimals); err != nil {
			return nil, nil, err
		}
	case a.Decimals < b.Decimals:
		if err := scale(alignedA, b.Decimals-a.Decimals); err != nil {
			return nil, nil, err
		}
	}

	return alignedA, alignedB, nil
}

// scale multiplies v in place by 10^exp, failing when the multiplier or the
// product does not fit in 256 bits.
func scale(v *big.Int, exp uint8) error {
	multiplier := Pow10(exp)
	if multiplier.Cmp(MaxMagnitude) > 0 {
		return fmt.Errorf("%w: multiplier 10^%d", ErrArithmeticOverflow, exp)
	}
	v.Mul(v, multiplier)
	if v.Cmp(MaxMagnitude) > 0 {
		return fmt.Errorf("%w: scaling by 10^%d", ErrArithmeticOverflow, exp)
	}
	return nil
}

// Pow10 returns 10^exp.
func Pow10(exp uint8) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(exp)), nil)
}

package deviation

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExceedsThreshold(t *testing.T) {
	tests := []struct {
		name        string
		primary     int64
		reference   int64
		denominator uint32
		want        bool
	}{
		{name: "boundary counts as exceeding", primary: 100, reference: 95, denominator: 20, want: true},
		{name: "just inside tolerance", primary: 100, reference: 96, denominator: 20, want: false},
		{name: "reference above primary", primary: 100, reference: 105, denominator: 20, want: true},
		{name: "reference slightly above", primary: 100, reference: 104, denominator: 20, want: false},
		{name: "zero primary nonzero reference", primary: 0, reference: 1, denominator: 20, want: true},
		{name: "both zero", primary: 0, reference: 0, denominator: 20, want: false},
		{name: "primary below denominator", primary: 10, reference: 11, denominator: 20, want: true},
		{name: "denominator one", primary: 100, reference: 1, denominator: 1, want: false},
		{name: "denominator one full drop", primary: 100, reference: 0, denominator: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExceedsThreshold(big.NewInt(tt.primary), big.NewInt(tt.reference), tt.denominator)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdenticalPricesNeverDeviate(t *testing.T) {
	for _, p := range []int64{0, 1, 7, 19, 20, 100, 1 << 40} {
		for _, d := range []uint32{1, 2, 20, 1000, 1 << 31} {
			got, err := ExceedsThreshold(big.NewInt(p), big.NewInt(p), d)
			require.NoError(t, err)
			assert.False(t, got, "p=%d d=%d", p, d)
		}
	}
}

func TestThresholdIsPrimaryRelative(t *testing.T) {
	// 100 vs 91 with 10%: threshold 10 from primary, delta 9.
	got, err := ExceedsThreshold(big.NewInt(100), big.NewInt(91), 10)
	require.NoError(t, err)
	assert.False(t, got)

	// Swapping roles: threshold 9 from primary 91, delta 9.
	got, err = ExceedsThreshold(big.NewInt(91), big.NewInt(100), 10)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestZeroDenominator(t *testing.T) {
	_, err := ExceedsThreshold(big.NewInt(1), big.NewInt(2), 0)
	assert.ErrorIs(t, err, ErrZeroDenominator)
}

func TestRatio(t *testing.T) {
	assert.True(t, Ratio(big.NewInt(100), big.NewInt(95)).Equal(decimal.RequireFromString("0.05")))
	assert.True(t, Ratio(big.NewInt(0), big.NewInt(95)).IsZero())
	assert.True(t, Tolerance(20).Equal(decimal.RequireFromString("0.05")))
	assert.True(t, Tolerance(0).IsZero())
}

package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign(t *testing.T) {
	tests := []struct {
		name  string
		a     PricePoint
		b     PricePoint
		wantA string
		wantB string
	}{
		{
			name:  "equal decimals unchanged",
			a:     NewPricePoint(12345, 8),
			b:     NewPricePoint(67890, 8),
			wantA: "12345",
			wantB: "67890",
		},
		{
			name:  "a has more decimals scales b",
			a:     NewPricePoint(10000000000, 8),
			b:     NewPricePoint(9500000, 6),
			wantA: "10000000000",
			wantB: "950000000",
		},
		{
			name:  "b has more decimals scales a",
			a:     NewPricePoint(95, 0),
			b:     NewPricePoint(100000000000000000, 18),
			wantA: "95000000000000000000",
			wantB: "100000000000000000",
		},
		{
			name:  "zero magnitude stays zero",
			a:     NewPricePoint(0, 2),
			b:     NewPricePoint(7, 0),
			wantA: "0",
			wantB: "700",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotA, gotB, err := Align(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.wantA, gotA.String())
			assert.Equal(t, tt.wantB, gotB.String())
		})
	}
}

func TestAlignScalesExactly(t *testing.T) {
	for da := uint8(0); da <= 30; da += 5 {
		for db := uint8(0); db <= 30; db += 3 {
			a := NewPricePoint(31337, da)
			b := NewPricePoint(42, db)
			gotA, gotB, err := Align(a, b)
			require.NoError(t, err)

			wantA, wantB := big.NewInt(31337), big.NewInt(42)
			if da > db {
				wantB.Mul(wantB, Pow10(da-db))
			} else if db > da {
				wantA.Mul(wantA, Pow10(db-da))
			}
			assert.Equal(t, 0, wantA.Cmp(gotA), "da=%d db=%d", da, db)
			assert.Equal(t, 0, wantB.Cmp(gotB), "da=%d db=%d", da, db)
		}
	}
}

func TestAlignDoesNotMutateInputs(t *testing.T) {
	a := NewPricePoint(5, 0)
	b := NewPricePoint(5, 4)
	_, _, err := Align(a, b)
	require.NoError(t, err)
	assert.Equal(t, "5", a.Magnitude.String())
	assert.Equal(t, "5", b.Magnitude.String())
}

func TestAlignOverflow(t *testing.T) {
	t.Run("multiplier too large", func(t *testing.T) {
		_, _, err := Align(NewPricePoint(1, 0), NewPricePoint(1, 78))
		assert.ErrorIs(t, err, ErrArithmeticOverflow)
	})

	t.Run("product too large", func(t *testing.T) {
		huge := PricePoint{Magnitude: new(big.Int).Rsh(MaxMagnitude, 1), Decimals: 0}
		_, _, err := Align(huge, NewPricePoint(1, 1))
		assert.ErrorIs(t, err, ErrArithmeticOverflow)
	})

	t.Run("largest fitting multiplier", func(t *testing.T) {
		gotA, _, err := Align(NewPricePoint(1, 0), NewPricePoint(1, 77))
		require.NoError(t, err)
		assert.Equal(t, 0, Pow10(77).Cmp(gotA))
	})
}

func TestAlignNilMagnitude(t *testing.T) {
	_, _, err := Align(PricePoint{}, NewPricePoint(1, 0))
	assert.ErrorIs(t, err, ErrNilMagnitude)
}

func TestFromSigned(t *testing.T) {
	p, err := FromSigned(big.NewInt(10000000000), 8)
	require.NoError(t, err)
	assert.Equal(t, "100", p.String())

	_, err = FromSigned(big.NewInt(-1), 8)
	assert.ErrorIs(t, err, ErrNegativePrice)

	_, err = FromSigned(nil, 8)
	assert.ErrorIs(t, err, ErrNilMagnitude)

	tooBig := new(big.Int).Add(MaxMagnitude, big.NewInt(1))
	_, err = FromSigned(tooBig, 0)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestPricePointDecimal(t *testing.T) {
	assert.Equal(t, "9.5", NewPricePoint(9500000, 6).String())
	assert.Equal(t, "0", PricePoint{}.String())
}

package codec

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

func TestPriceToTick(t *testing.T) {
	tests := []struct {
		name          string
		price         string
		baseDecimals  int32
		quoteDecimals int32
		wantTick      int32
		wantClamped   bool
	}{
		{"unit price equal decimals", "1", 6, 6, 0, false},
		{"round number", "2000", 6, 6, 76013, false},
		{"zero clamps low", "0", 6, 6, LowerTickBound, true},
		{"negative clamps low", "-5", 6, 6, LowerTickBound, true},
		{"huge clamps high", "1e60", 6, 6, UpperTickBound, true},
		{"tiny clamps low", "1e-60", 6, 6, LowerTickBound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tick, clamped := PriceToTick(decimal.RequireFromString(tt.price), tt.baseDecimals, tt.quoteDecimals)
			assert.Equal(t, tt.wantTick, tick)
			assert.Equal(t, tt.wantClamped, clamped)
		})
	}
}

func TestTickToPriceRoundTrip(t *testing.T) {
	// A tick's price must map back to the same tick, and the reconstruction
	// error must stay within one tick's granularity.
	for _, tick := range []int32{-100000, -1, 0, 1, 76013, 200000} {
		price := TickToPrice(tick, 6, 6)
		back, clamped := PriceToTick(price, 6, 6)
		assert.False(t, clamped)
		assert.Equal(t, tick, back, "tick %d came back as %d via price %s", tick, back, price)
	}
}

func TestTickToPriceDecimalShift(t *testing.T) {
	// With 18/6 decimals the raw tick price is scaled by 10^12.
	p66 := TickToPrice(0, 6, 6)
	p186 := TickToPrice(0, 18, 6)
	assert.True(t, p66.Equal(decimal.NewFromInt(1)), "got %s", p66)
	assert.True(t, p186.Equal(decimal.NewFromInt(1).Shift(12)), "got %s", p186)
}

func TestOneTickGranularity(t *testing.T) {
	g := OneTickGranularity(decimal.NewFromInt(2000))
	assert.True(t, g.Equal(decimal.RequireFromString("0.2")), "got %s", g)
}

func TestPriceFromSqrt(t *testing.T) {
	tests := []struct {
		name          string
		sqrtHex       string
		baseDecimals  int32
		quoteDecimals int32
		want          string
	}{
		{"eth usdc bid", "0xfbb120541b407b9868d9", 18, 6, "225.060191980691501365"},
		{"eth usdc ask", "0x3095e05a90eb0c51432071", 18, 6, "549607.537764069771276512"},
		{"pool buy", "0x3bc9b4d35fc93990865a6", 18, 6, "3251.075060301474266846"},
		{"pool sell", "0x3baddb29af3e837abc358", 18, 6, "3239.254519604014993867"},
		{"q96 unit equal decimals", "0x1000000000000000000000000", 6, 6, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSqrtPrice(tt.sqrtHex, tt.baseDecimals, tt.quoteDecimals)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestPriceFromSqrtExactSquare(t *testing.T) {
	// sqrt price 2 * 2^96 squares to exactly 4 with no rounding residue.
	v := new(big.Int).Lsh(big.NewInt(2), 96)
	got := PriceFromSqrt(v, 6, 6)
	assert.True(t, got.Equal(decimal.NewFromInt(4)), "got %s", got)
}

func TestDecodeSqrtPriceMalformed(t *testing.T) {
	_, err := DecodeSqrtPrice("nothex", 18, 6)
	assert.ErrorIs(t, err, domain.ErrMalformedNumericLiteral)
}

package codec

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Tick bounds of the protocol's price ladder. price_to_tick saturates at
// these bounds instead of failing.
const (
	LowerTickBound int32 = -887272
	UpperTickBound int32 = 887272
)

// sqrtPriceFractionalBits is the fixed-point shift of wire sqrt prices:
// sqrt_price = sqrt(raw_price) * 2^96.
const sqrtPriceFractionalBits = 96

// priceScale is the number of decimal places a derived price is rounded to.
const priceScale = 18

var (
	logTickBase = math.Log(1.0001)

	// q192 = 2^192, the divisor for a squared Q96 sqrt price.
	q192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 2*sqrtPriceFractionalBits), 0)
)

// PriceToTick converts a human price for the pair into the nearest integer
// tick on the 1.0001 geometric ladder, adjusted for the decimal-place
// difference between base and quote. The second return value reports whether
// the result was clamped to a tick bound (including non-positive prices,
// which clamp to the lower bound).
func PriceToTick(price decimal.Decimal, baseDecimals, quoteDecimals int32) (int32, bool) {
	raw, _ := price.Shift(quoteDecimals - baseDecimals).Float64()
	if raw <= 0 {
		return LowerTickBound, true
	}
	tick := math.Round(math.Log(raw) / logTickBase)
	switch {
	case tick < float64(LowerTickBound):
		return LowerTickBound, true
	case tick > float64(UpperTickBound):
		return UpperTickBound, true
	default:
		return int32(tick), false
	}
}

// TickToPrice is the inverse of PriceToTick within the tick bounds: it
// returns the human price of the given tick for a pair with the given
// decimal places.
func TickToPrice(tick, baseDecimals, quoteDecimals int32) decimal.Decimal {
	raw := math.Pow(1.0001, float64(tick))
	return decimal.NewFromFloat(raw).Shift(baseDecimals - quoteDecimals)
}

// PriceFromSqrt recovers the linear human price from a Q96 sqrt price: the
// ratio is squared exactly in integer space, scaled by the base/quote
// decimal-place difference, and rounded half away from zero to priceScale
// decimal places.
func PriceFromSqrt(sqrtPrice *big.Int, baseDecimals, quoteDecimals int32) decimal.Decimal {
	squared := new(big.Int).Mul(sqrtPrice, sqrtPrice)
	num := decimal.NewFromBigInt(squared, baseDecimals-quoteDecimals)
	return num.DivRound(q192, priceScale)
}

// DecodeSqrtPrice parses a hex-encoded Q96 sqrt price and converts it to a
// human price.
func DecodeSqrtPrice(hexStr string, baseDecimals, quoteDecimals int32) (decimal.Decimal, error) {
	v, err := parseBig(hexStr)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return PriceFromSqrt(v, baseDecimals, quoteDecimals), nil
}

// OneTickGranularity returns the price distance to the next tick above p,
// used by callers validating tick round-trips.
func OneTickGranularity(p decimal.Decimal) decimal.Decimal {
	return p.Mul(decimal.NewFromFloat(0.0001))
}

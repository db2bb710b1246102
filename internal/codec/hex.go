// Package codec converts between the Chainflip wire encodings (hex-encoded
// fixed-point integers, sqrt prices, ticks) and decimal prices and amounts.
// All conversions are exact in the integer-to-decimal direction; no float math
// touches amounts or ladder prices.
package codec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

// Decode interprets hexStr as an unsigned big integer and scales it by
// 10^-decimals. It returns domain.ErrMalformedNumericLiteral (wrapped) when
// the string is missing the 0x prefix or contains non-hex digits. Zero and
// 30+ digit magnitudes decode exactly.
func Decode(hexStr string, decimals int32) (decimal.Decimal, error) {
	v, err := parseBig(hexStr)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromBigInt(v, -decimals), nil
}

// Encode is the inverse of Decode: it scales d by 10^decimals, truncates any
// fractional remainder below the representable precision, and formats the
// result as a canonical 0x-prefixed hex quantity. Negative values are
// rejected; the wire format carries unsigned quantities only.
func Encode(d decimal.Decimal, decimals int32) (string, error) {
	if d.IsNegative() {
		return "", fmt.Errorf("codec: encode negative value %s: %w", d, domain.ErrMalformedNumericLiteral)
	}
	units := d.Shift(decimals).Truncate(0)
	return hexutil.EncodeBig(units.BigInt()), nil
}

// parseBig parses a 0x-prefixed hex quantity of any magnitude. hexutil's
// quantity decoder caps at 256 bits and rejects leading zero digits, both of
// which are legal in pool snapshots, so the digits are parsed with math/big
// after the prefix check.
func parseBig(hexStr string) (*big.Int, error) {
	if len(hexStr) < 3 || hexStr[0] != '0' || (hexStr[1] != 'x' && hexStr[1] != 'X') {
		return nil, fmt.Errorf("codec: parse %q: %w", hexStr, domain.ErrMalformedNumericLiteral)
	}
	v, ok := new(big.Int).SetString(hexStr[2:], 16)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("codec: parse %q: %w", hexStr, domain.ErrMalformedNumericLiteral)
	}
	return v, nil
}

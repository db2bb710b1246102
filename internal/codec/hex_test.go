package codec

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		hex      string
		decimals int32
		want     string
	}{
		{"zero", "0x0", 18, "0"},
		{"one wei", "0x1", 18, "0.000000000000000001"},
		{"eighteen decimals", "0x107c356adb931da34b3", 18, "4865.569320081922077875"},
		{"six decimals", "0x8bb50bca00", 6, "600037.902848"},
		{"leading zero digit", "0x0de0b6b3a7640000", 18, "1"},
		{"dust below precision", "0x2386f26fc0bda2", 18, "0.00999999999998301"},
		{"uppercase prefix", "0XFF", 0, "255"},
		{"no scaling", "0x2a", 0, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.hex, tt.decimals)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, hex := range []string{"", "0x", "42", "x42", "0xZZ", "0x12g4"} {
		t.Run(hex, func(t *testing.T) {
			_, err := Decode(hex, 18)
			assert.ErrorIs(t, err, domain.ErrMalformedNumericLiteral)
		})
	}
}

func TestDecodeVeryLargeMagnitude(t *testing.T) {
	// 2^256 does not fit hexutil's quantity type but is a legal amount.
	got, err := Decode("0x10000000000000000000000000000000000000000000000000000000000000000", 0)
	require.NoError(t, err)
	want := decimal.RequireFromString("115792089237316195423570985008687907853269984665640564039457584007913129639936")
	assert.True(t, got.Equal(want), "got %s", got)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals int32
		want     string
	}{
		{"zero", "0", 18, "0x0"},
		{"one token", "1", 18, "0xde0b6b3a7640000"},
		{"six decimals", "600037.902848", 6, "0x8bb50bca00"},
		{"truncates sub-precision remainder", "1.0000000000000000019", 18, "0xde0b6b3a7640001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(decimal.RequireFromString(tt.value), tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeNegative(t *testing.T) {
	_, err := Encode(decimal.NewFromInt(-1), 18)
	assert.ErrorIs(t, err, domain.ErrMalformedNumericLiteral)
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	for _, hex := range []string{"0x1", "0x107c356adb931da34b3", "0x8bb50bca00"} {
		d, err := Decode(hex, 18)
		require.NoError(t, err)
		back, err := Encode(d, 18)
		require.NoError(t, err)
		assert.Equal(t, hex, back)
	}
}

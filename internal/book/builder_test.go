package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

var (
	testETH  = domain.Asset{Chain: "Ethereum", Symbol: "ETH"}
	testUSDC = domain.Asset{Chain: "Ethereum", Symbol: "USDC"}
)

func testDecimals(a domain.Asset) int32 {
	if a.Symbol == "USDC" {
		return 6
	}
	return 18
}

func rawBook() domain.RawOrderBook {
	return domain.RawOrderBook{
		Bids: []domain.RawLadderEntry{
			{AmountHex: "0x107c356adb931da34b3", SqrtPriceHex: "0xfbb120541b407b9868d9"},
			{AmountHex: "0x1f479f986214e02339a6", SqrtPriceHex: "0x564256ea016eba867e1"},
			{AmountHex: "0x3e3545abc51ed0a2e83c5", SqrtPriceHex: "0x2b5f8cda448aebe9f1"},
			{AmountHex: "0x7bb79b1c4a08649e8741d7", SqrtPriceHex: "0x15cf243b1f8d7d6d8"},
			{AmountHex: "0xf60b58771d06b50676d43f1", SqrtPriceHex: "0xaf75764f8561157"},
			{AmountHex: "0x1e952f50cd75553eb44b821e6", SqrtPriceHex: "0x5838f60e3b0677"},
			{AmountHex: "0x3cd26661993d3d1e2a3c518494", SqrtPriceHex: "0x2c55cea9a4bb6"},
			{AmountHex: "0x78f5d94d8865e2f510e6bdaf204", SqrtPriceHex: "0x15c5f126b383"},
		},
		Asks: []domain.RawLadderEntry{
			{AmountHex: "0xb0b90b96b1f7b7704", SqrtPriceHex: "0x3095e05a90eb0c51432071"},
			{AmountHex: "0x949634d34d54ee4", SqrtPriceHex: "0x31891e0493daf1ccf23d9ea4"},
			{AmountHex: "0xa9b606d4ea48f", SqrtPriceHex: "0x2b5eabdc67a5d950f4f76ee5c9"},
			{AmountHex: "0xc1d6aaaba38", SqrtPriceHex: "0x25f8b2adc2eca75997729789aec4"},
			{AmountHex: "0xdd656d902", SqrtPriceHex: "0x213ebde612ea193310132c046f0af3"},
			{AmountHex: "0xfcdf26c", SqrtPriceHex: "0x1d1b64375e15ea2dd31f9260ec843d78"},
			{AmountHex: "0x120d26", SqrtPriceHex: "0x197be72c022b9bfbc519350b01526176b0"},
			{AmountHex: "0x149e", SqrtPriceHex: "0x164feda37568c4847e63597bcec4061b3ca3"},
			{AmountHex: "0x17", SqrtPriceHex: "0x13c435b327440aa87b5c9954de7934f9180b06"},
		},
	}
}

func TestBuilderBuild(t *testing.T) {
	b := NewBuilder(testDecimals)

	ob, err := b.Build("ETH-USDC", rawBook(), testETH, testUSDC)
	require.NoError(t, err)

	assert.Equal(t, "ETH-USDC", ob.Pair)
	assert.Equal(t, uint64(1), ob.Version)
	assert.False(t, ob.Timestamp.IsZero())
	require.Len(t, ob.Bids, 8)
	require.Len(t, ob.Asks, 9)

	assert.True(t, ob.Bids[0].Amount.Equal(decimal.RequireFromString("4865.569320081922077875")),
		"bid amount %s", ob.Bids[0].Amount)
	assert.True(t, ob.Bids[0].Price.Equal(decimal.RequireFromString("225.060191980691501365")),
		"bid price %s", ob.Bids[0].Price)
	assert.True(t, ob.Bids[3].Amount.Equal(decimal.RequireFromString("149564930.162746968131453399")),
		"bid amount %s", ob.Bids[3].Amount)
	assert.True(t, ob.Bids[3].Price.Equal(decimal.RequireFromString("0.000000100720449531")),
		"bid price %s", ob.Bids[3].Price)
	assert.True(t, ob.Asks[0].Amount.Equal(decimal.RequireFromString("203.74755461160943386")),
		"ask amount %s", ob.Asks[0].Amount)
	assert.True(t, ob.Asks[0].Price.Equal(decimal.RequireFromString("549607.537764069771276512")),
		"ask price %s", ob.Asks[0].Price)
	assert.True(t, ob.Asks[2].Amount.Equal(decimal.RequireFromString("0.002985588220142735")),
		"ask amount %s", ob.Asks[2].Amount)
	assert.True(t, ob.Asks[2].Price.Equal(decimal.RequireFromString("1880940409902022.13471777259042141")),
		"ask price %s", ob.Asks[2].Price)

	// The deepest bid's price underflows the 18-place quantum; the level is
	// kept with a zero price rather than dropped.
	assert.True(t, ob.Bids[7].Price.IsZero(), "bid price %s", ob.Bids[7].Price)
	assert.True(t, ob.Bids[7].Amount.Equal(decimal.RequireFromString("153335456514545.992038023102657028")),
		"bid amount %s", ob.Bids[7].Amount)
}

func TestBuilderVersionsPerPair(t *testing.T) {
	b := NewBuilder(testDecimals)

	first, err := b.Build("ETH-USDC", rawBook(), testETH, testUSDC)
	require.NoError(t, err)
	second, err := b.Build("ETH-USDC", rawBook(), testETH, testUSDC)
	require.NoError(t, err)
	other, err := b.Build("BTC-USDC", rawBook(), domain.Asset{Chain: "Bitcoin", Symbol: "BTC"}, testUSDC)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Version)
	assert.Equal(t, uint64(2), second.Version)
	assert.Equal(t, uint64(1), other.Version, "pairs version independently")
}

func TestBuilderFailureDoesNotConsumeVersion(t *testing.T) {
	b := NewBuilder(testDecimals)

	bad := rawBook()
	bad.Asks = nil
	_, err := b.Build("ETH-USDC", bad, testETH, testUSDC)
	require.ErrorIs(t, err, domain.ErrMalformedSnapshot)

	ob, err := b.Build("ETH-USDC", rawBook(), testETH, testUSDC)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ob.Version)
}

func TestBuilderMalformedEntries(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.RawOrderBook)
	}{
		{"missing bids side", func(r *domain.RawOrderBook) { r.Bids = nil }},
		{"missing asks side", func(r *domain.RawOrderBook) { r.Asks = nil }},
		{"entry missing amount", func(r *domain.RawOrderBook) { r.Bids[0].AmountHex = "" }},
		{"entry missing sqrt price", func(r *domain.RawOrderBook) { r.Asks[0].SqrtPriceHex = "" }},
		{"entry bad hex", func(r *domain.RawOrderBook) { r.Bids[1].AmountHex = "zz" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(testDecimals)
			raw := rawBook()
			tt.mutate(&raw)
			_, err := b.Build("ETH-USDC", raw, testETH, testUSDC)
			assert.ErrorIs(t, err, domain.ErrMalformedSnapshot)
		})
	}
}

func TestBuilderEmptySidesAreValid(t *testing.T) {
	b := NewBuilder(testDecimals)

	raw := domain.RawOrderBook{
		Bids: []domain.RawLadderEntry{},
		Asks: []domain.RawLadderEntry{},
	}
	ob, err := b.Build("ETH-USDC", raw, testETH, testUSDC)
	require.NoError(t, err)
	assert.Empty(t, ob.Bids)
	assert.Empty(t, ob.Asks)
	assert.Equal(t, uint64(1), ob.Version)
}

func TestBuilderKeepsZeroAmountLevels(t *testing.T) {
	b := NewBuilder(testDecimals)

	raw := rawBook()
	raw.Bids[1].AmountHex = "0x0"
	ob, err := b.Build("ETH-USDC", raw, testETH, testUSDC)
	require.NoError(t, err)
	require.Len(t, ob.Bids, 8)
	assert.True(t, ob.Bids[1].Amount.IsZero())
}

package numeric

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		expected string
	}{
		{
			name:     "six decimals scales up",
			amount:   "1000000",
			decimals: 6,
			expected: "1000000000000000000",
		},
		{
			name:     "eighteen decimals unchanged",
			amount:   "123456789",
			decimals: 18,
			expected: "123456789",
		},
		{
			name:     "twenty four decimals truncates toward zero",
			amount:   "1999999",
			decimals: 24,
			expected: "1",
		},
		{
			name:     "zero decimals",
			amount:   "5",
			decimals: 0,
			expected: "5000000000000000000",
		},
		{
			name:     "negative amount scales up",
			amount:   "-250",
			decimals: 6,
			expected: "-250000000000000000",
		},
		{
			name:     "negative truncation goes toward zero",
			amount:   "-1999999",
			decimals: 24,
			expected: "-1",
		},
		{
			name:     "zero",
			amount:   "0",
			decimals: 6,
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, ok := new(big.Int).SetString(tt.amount, 10)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, Normalize(amount, tt.decimals).String())
		})
	}
}

func TestNormalizeNil(t *testing.T) {
	assert.Equal(t, "0", Normalize(nil, 6).String())
}

func TestNormalizeIdempotentAtEighteen(t *testing.T) {
	amount := big.NewInt(123456)
	once := Normalize(amount, 6)
	twice := Normalize(once, 18)
	assert.Equal(t, once.String(), twice.String())
}

func TestDayBucket(t *testing.T) {
	tests := []struct {
		name      string
		timestamp int64
		expected  int64
	}{
		{"epoch", 0, 0},
		{"mid day truncates", 86400 + 3600, 86400},
		{"exact boundary", 172800, 172800},
		{"one second before boundary", 172799, 86400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DayBucket(tt.timestamp))
		})
	}
}

func TestMonthBucket(t *testing.T) {
	// 30.437-day periods anchored at the epoch: first boundary at day 31
	// (30437/1000 rounds under 31), second at day 60.
	tests := []struct {
		name      string
		timestamp int64
	}{
		{"epoch", 0},
		{"mid first month", 15 * SecondsPerDay},
		{"around one year", 370 * SecondsPerDay},
		{"modern timestamp", 1700000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket := MonthBucket(tt.timestamp)

			// bucket start is day aligned and never after the input
			assert.Zero(t, bucket%SecondsPerDay)
			assert.LessOrEqual(t, bucket, tt.timestamp)

			// later timestamps never map to an earlier bucket
			assert.GreaterOrEqual(t, MonthBucket(tt.timestamp+SecondsPerDay), bucket)
		})
	}
}

func TestMonthBucketExactValues(t *testing.T) {
	// daysSinceEpoch*1000/30437 months, re-expanded to days via the inverse
	assert.Equal(t, int64(0), MonthBucket(30*SecondsPerDay))
	assert.Equal(t, int64(30*SecondsPerDay), MonthBucket(31*SecondsPerDay))
	assert.Equal(t, int64(30*SecondsPerDay), MonthBucket(60*SecondsPerDay))
	assert.Equal(t, int64(60*SecondsPerDay), MonthBucket(61*SecondsPerDay))
}

func TestUSDValue(t *testing.T) {
	tests := []struct {
		name          string
		amount        string
		tokenDecimals uint8
		price         string
		priceDecimals uint8
		expected      string
	}{
		{
			name:          "one usdc at one dollar",
			amount:        "1000000",
			tokenDecimals: 6,
			price:         "100000000",
			priceDecimals: 8,
			expected:      "1000000000000000000",
		},
		{
			name:          "two tokens at one dollar",
			amount:        "2000000",
			tokenDecimals: 6,
			price:         "100000000",
			priceDecimals: 8,
			expected:      "2000000000000000000",
		},
		{
			name:          "eighteen decimal token at fifty cents",
			amount:        "4000000000000000000",
			tokenDecimals: 18,
			price:         "50000000",
			priceDecimals: 8,
			expected:      "2000000000000000000",
		},
		{
			name:          "zero price yields zero value",
			amount:        "1000000",
			tokenDecimals: 6,
			price:         "0",
			priceDecimals: 8,
			expected:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, _ := new(big.Int).SetString(tt.amount, 10)
			price, _ := new(big.Int).SetString(tt.price, 10)
			assert.Equal(t, tt.expected, USDValue(amount, tt.tokenDecimals, price, tt.priceDecimals).String())
		})
	}
}

func TestUSDValueNilInputs(t *testing.T) {
	assert.Equal(t, "0", USDValue(nil, 6, big.NewInt(1), 8).String())
	assert.Equal(t, "0", USDValue(big.NewInt(1), 6, nil, 8).String())
}

// Package numeric implements the fixed-point and time-bucket arithmetic shared
// by the projectors. All functions use integer arithmetic only; division
// truncates toward zero.
package numeric

import "math/big"

const (
	// SecondsPerDay is the width of a day bucket
	SecondsPerDay = 86400

	// milliDaysPerMonth is 30.437 days expressed in thousandths, the average
	// month length (365.25 / 12 days) used for epoch-anchored month buckets
	milliDaysPerMonth = 30437

	// normalizedDecimals is the canonical fixed-point precision for TVL and
	// fiat values
	normalizedDecimals = 18
)

var bigTen = big.NewInt(10)

// Normalize rescales an integer token amount from the token's native decimals
// to the canonical 18-decimal representation. Scaling down truncates toward
// zero. Normalize is idempotent at 18 decimals.
func Normalize(amount *big.Int, decimals uint8) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	if decimals == normalizedDecimals {
		return new(big.Int).Set(amount)
	}

	if decimals < normalizedDecimals {
		scale := pow10(normalizedDecimals - decimals)
		return new(big.Int).Mul(amount, scale)
	}

	scale := pow10(decimals - normalizedDecimals)
	return new(big.Int).Quo(amount, scale)
}

// DayBucket maps a unix timestamp to the start of its UTC day
func DayBucket(timestamp int64) int64 {
	return timestamp / SecondsPerDay * SecondsPerDay
}

// MonthBucket maps a unix timestamp to the start of the ~30.4375-day period
// containing it, anchored at the unix epoch. These are not calendar months:
// the bucket width is the average month length so that twelve buckets span
// one mean year.
func MonthBucket(timestamp int64) int64 {
	daysSinceEpoch := timestamp / SecondsPerDay
	monthsSinceEpoch := daysSinceEpoch * 1000 / milliDaysPerMonth
	monthStartDays := monthsSinceEpoch * milliDaysPerMonth / 1000
	return monthStartDays * SecondsPerDay
}

// USDValue computes the 18-decimal fiat value of a token amount given the
// latest feed price. A zero price yields a zero value.
func USDValue(amount *big.Int, tokenDecimals uint8, price *big.Int, priceDecimals uint8) *big.Int {
	if amount == nil || price == nil || price.Sign() == 0 {
		return new(big.Int)
	}

	normalized := Normalize(amount, tokenDecimals)
	value := new(big.Int).Mul(normalized, price)
	return value.Quo(value, pow10(priceDecimals))
}

func pow10(exp uint8) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(exp)), nil)
}

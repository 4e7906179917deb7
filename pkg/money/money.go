// Package money converts between integer minor units and decimal major units.
// All stored amounts are minor units of a single currency.
package money

import "github.com/shopspring/decimal"

const MinorPerMajor = 100

var (
	minorPerMajor = decimal.NewFromInt(MinorPerMajor)
	hundred       = decimal.NewFromInt(100)
)

func ToMajor(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorPerMajor)
}

// FromMajor rounds half away from zero to the nearest minor unit.
func FromMajor(major decimal.Decimal) int64 {
	return major.Mul(minorPerMajor).Round(0).IntPart()
}

// Percent returns pct percent of minor, rounded half away from zero.
func Percent(minor int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(minor).Mul(pct).Div(hundred).Round(0).IntPart()
}

// Format renders minor units as a fixed two-decimal major amount.
func Format(minor int64) string {
	return ToMajor(minor).StringFixed(2)
}

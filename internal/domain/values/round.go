package values

import "github.com/shopspring/decimal"

// Round rounds half away from zero to the given number of decimal places.
func Round(f float64, places int32) float64 {
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}

// Percent returns part/whole as a percentage rounded to two places; 0 when
// whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(whole)), 2).
		InexactFloat64()
}

// Ratio returns num/den rounded to two places; 0 when den is 0.
func Ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(num)).
		DivRound(decimal.NewFromInt(int64(den)), 2).
		InexactFloat64()
}

package fantasy

import "github.com/shopspring/decimal"

// Round2 rounds half away from zero at two decimal places using the shortest
// decimal representation of x, so 2.675 rounds to 2.68 rather than the 2.67
// a float multiply-and-round would give.
func Round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

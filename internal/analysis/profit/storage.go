package profit

import "github.com/shopspring/decimal"

// StorageCost is the linear holding cost of quantity units for days,
// rounded to the nearest whole rupee. There is no minimum charge.
func StorageCost(ratePerUnitPerWeek float64, days int, quantity float64) float64 {
	if days <= 0 {
		return 0
	}
	cost := decimal.NewFromFloat(ratePerUnitPerWeek).
		Mul(decimal.NewFromInt(int64(days))).
		Mul(decimal.NewFromFloat(quantity)).
		Div(decimal.NewFromInt(7))
	return cost.Round(0).InexactFloat64()
}

// ProjectedPrice applies a forecast percent change to the current price,
// rounded to the nearest whole rupee.
func ProjectedPrice(current, percentChange float64) float64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(percentChange).Div(decimal.NewFromInt(100)))
	return decimal.NewFromFloat(current).Mul(factor).Round(0).InexactFloat64()
}

package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// dec converts a float amount to a decimal. NaN and infinities become zero.
func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// RoundCents rounds an amount to cents, half away from zero.
func RoundCents(v float64) float64 {
	return dec(v).Round(2).InexactFloat64()
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

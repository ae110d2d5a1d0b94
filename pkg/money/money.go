package money

import (
	"github.com/shopspring/decimal"
)

// All amounts are Philippine peso with 2 decimal places. Rates are decimal
// fractions (0.06 means 6%), never raw percentages.

var Zero = decimal.Zero

// Round rounds an amount to the currency unit using round-half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Monthly returns base * rate * months, rounded to the currency unit.
func Monthly(base decimal.Decimal, rate decimal.Decimal, months int) decimal.Decimal {
	return Round(base.Mul(rate).Mul(decimal.NewFromInt(int64(months))))
}

// Pct returns base * rate, rounded to the currency unit.
func Pct(base decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(rate))
}

// Clamp bounds amount to [min, max]. A zero max means no upper bound.
func Clamp(amount, min, max decimal.Decimal) decimal.Decimal {
	if amount.LessThan(min) {
		return min
	}
	if max.IsPositive() && amount.GreaterThan(max) {
		return max
	}
	return amount
}

// FromFloat converts a float amount to a currency-unit decimal. Only intended
// for request payloads; persisted values never round-trip through floats.
func FromFloat(f float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(f))
}

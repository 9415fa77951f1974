// Package money holds the currency arithmetic shared by pricing, shipping and
// order composition. Amounts are shopspring decimals; every persisted amount
// is rounded to two places half away from zero (half-up for the non-negative
// values the storefront produces).
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of minor-unit digits kept on persisted amounts.
const Places = 2

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Zero is the zero amount.
var Zero = decimal.Zero

// Round rounds d to the currency precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds values without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// ValidatePercent checks that p is within [0, 100].
func ValidatePercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return fmt.Errorf("percent %s out of range [0,100]", p.String())
	}
	return nil
}

// ApplyDiscount returns amount reduced by percent, rounded to currency precision.
func ApplyDiscount(amount, percent decimal.Decimal) decimal.Decimal {
	if percent.IsZero() {
		return Round(amount)
	}
	factor := one.Sub(percent.Div(hundred))
	return Round(amount.Mul(factor))
}

// MulQty multiplies a unit amount by an integer quantity.
func MulQty(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

// Parse reads a decimal amount from its string form.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d, nil
}

// NonNegative reports whether d >= 0.
func NonNegative(d decimal.Decimal) bool {
	return !d.IsNegative()
}

// Package estimate holds the pure calculation core of a fee statement: area
// derivation, the quantity auto-calculation rule table, and totals.
package estimate

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// MaxInput bounds every normalized quantity, price, dimension, count and
// margin so products and sums stay finite.
const MaxInput = 1e9

var hundred = decimal.NewFromInt(100)

// Round2 rounds v to two decimal places, half away from zero. Non-finite
// values become 0.
func Round2(v float64) float64 {
	return fromDecimal(toDecimal(v).Round(2))
}

// LineTotal returns round2(quantity * unitPrice).
func LineTotal(quantity, unitPrice float64) float64 {
	return fromDecimal(toDecimal(quantity).Mul(toDecimal(unitPrice)).Round(2))
}

// toDecimal is decimal.NewFromFloat without the panic on NaN and Inf.
func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func fromDecimal(d decimal.Decimal) float64 {
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseNumber converts user input to a number. Anything that is not a finite
// number (empty text, "abc", nil, booleans, NaN) becomes 0. Numeric fields
// have no invalid state; bad input is normalized instead of rejected.
func ParseNumber(v any) float64 {
	switch t := v.(type) {
	case bool:
		return 0
	case string:
		v = strings.TrimSpace(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseNonNegative is ParseNumber clamped to [0, MaxInput]. It is applied to
// quantities, prices, dimensions, counts and the margin.
func ParseNonNegative(v any) float64 {
	return Clamp(ParseNumber(v))
}

// Clamp bounds an already numeric value to [0, MaxInput]; NaN becomes 0.
func Clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > MaxInput:
		return MaxInput
	}
	return f
}

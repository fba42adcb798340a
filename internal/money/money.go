package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Cents is an amount of currency in integral cents.
type Cents int64

var hundred = decimal.NewFromInt(100)

// FromDecimal converts a dollar amount to cents, rounding half-up.
func FromDecimal(dollars decimal.Decimal) Cents {
	return RoundHalfUp(dollars.Mul(hundred))
}

// FromFloat converts a float dollar amount to cents, rounding half-up.
func FromFloat(dollars float64) Cents {
	return FromDecimal(decimal.NewFromFloat(dollars))
}

// RoundHalfUp rounds a fractional cent amount to whole cents.
// Halves round away from zero, so -0.5 becomes -1.
func RoundHalfUp(cents decimal.Decimal) Cents {
	return Cents(cents.Round(0).IntPart())
}

// RoundFloat rounds a float cent amount to whole cents.
func RoundFloat(cents float64) Cents {
	if math.IsNaN(cents) || math.IsInf(cents, 0) {
		return 0
	}
	return RoundHalfUp(decimal.NewFromFloat(cents))
}

// MulDiv returns c*num/den rounded half-up, computed exactly.
func MulDiv(c Cents, num, den int64) Cents {
	if den == 0 {
		return 0
	}
	v := decimal.NewFromInt(int64(c)).Mul(decimal.NewFromInt(num))
	return RoundHalfUp(v.DivRound(decimal.NewFromInt(den), 8))
}

// Percent returns pct percent of c, rounded half-up. Percent(1000, 12.5) == 125.
func Percent(c Cents, pct decimal.Decimal) Cents {
	v := decimal.NewFromInt(int64(c)).Mul(pct)
	return RoundHalfUp(v.DivRound(hundred, 8))
}

// Decimal returns the dollar value of c.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats c as dollars with two decimals, e.g. "$1234.50".
func (c Cents) String() string {
	if c < 0 {
		return fmt.Sprintf("-$%s", (-c).Decimal().StringFixed(2))
	}
	return fmt.Sprintf("$%s", c.Decimal().StringFixed(2))
}

// Min returns the smaller of a and b.
func Min(a, b Cents) Cents {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Cents) Cents {
	if a > b {
		return a
	}
	return b
}

// Positive floors c at zero.
func Positive(c Cents) Cents {
	return Max(c, 0)
}

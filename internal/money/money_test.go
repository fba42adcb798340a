package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundHalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Cents
	}{
		{"0.4", 0},
		{"0.5", 1},
		{"1.49", 1},
		{"2.5", 3},
		{"-0.5", -1},
		{"-2.4", -2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundHalfUp(decimal.RequireFromString(tc.in)), tc.in)
	}
}

func TestFromDecimal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Cents(123456), FromDecimal(decimal.RequireFromString("1234.555")))
	assert.Equal(t, Cents(1000), FromFloat(10))
	assert.Equal(t, Cents(1), FromFloat(0.005))
}

func TestMulDiv(t *testing.T) {
	t.Parallel()

	// $500 at 5% APR for one month: 50000*500/120000 = 208.33
	assert.Equal(t, Cents(208), MulDiv(50000, 500, 120000))
	// $2000 at 22% APR: 3666.67
	assert.Equal(t, Cents(3667), MulDiv(200000, 2200, 120000))
	assert.Equal(t, Cents(0), MulDiv(100, 1, 0))
}

func TestPercent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Cents(125), Percent(1000, decimal.RequireFromString("12.5")))
	assert.Equal(t, Cents(15000), Percent(150000, decimal.NewFromInt(10)))
	assert.Equal(t, Cents(1), Percent(5, decimal.NewFromInt(10)))
}

func TestString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$12.34", Cents(1234).String())
	assert.Equal(t, "$0.05", Cents(5).String())
	assert.Equal(t, "-$1.00", Cents(-100).String())
}

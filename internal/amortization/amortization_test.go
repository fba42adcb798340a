package amortization

import (
	"testing"

	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthsToPayoff(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		balance money.Cents
		apr     int
		payment money.Cents
		want    int
		ok      bool
	}{
		{"standard", 100000, 1200, 10000, 11, true},
		{"zero rate exact", 100000, 0, 25000, 4, true},
		{"zero rate remainder", 100000, 0, 30000, 4, true},
		{"already paid", 0, 1200, 0, 0, true},
		{"negative balance", -500, 1200, 100, 0, true},
		{"no payment", 100000, 1200, 0, 0, false},
		{"interest only", 100000, 1200, 1000, 0, false},
		{"below interest", 100000, 1200, 900, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MonthsToPayoff(tc.balance, tc.apr, tc.payment)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequiredPaymentForTarget(t *testing.T) {
	t.Parallel()

	assert.Equal(t, money.Cents(8885), RequiredPaymentForTarget(100000, 1200, 12))
	assert.Equal(t, money.Cents(33333), RequiredPaymentForTarget(100000, 0, 3))
	assert.Equal(t, money.Cents(100000), RequiredPaymentForTarget(100000, 1200, 1))
	assert.Equal(t, money.Cents(100000), RequiredPaymentForTarget(100000, 1200, 0))
	assert.Equal(t, money.Cents(0), RequiredPaymentForTarget(0, 1200, 6))
}

func TestRequiredPaymentRoundTrips(t *testing.T) {
	t.Parallel()

	// one extra cent absorbs the rounding of the payment itself
	payment := RequiredPaymentForTarget(250000, 1999, 24) + 1
	months, ok := MonthsToPayoff(250000, 1999, payment)
	require.True(t, ok)
	assert.Equal(t, 24, months)
}

func TestSchedule(t *testing.T) {
	t.Parallel()

	rows := Schedule(100000, 1200, 50000, 120)
	require.Len(t, rows, 3)
	assert.Equal(t, Row{Month: 1, Payment: 50000, Interest: 1000, Principal: 49000, Balance: 51000}, rows[0])
	assert.Equal(t, money.Cents(15), rows[2].Interest)
	assert.Equal(t, money.Cents(1525), rows[2].Payment)
	assert.Equal(t, money.Cents(0), rows[2].Balance)
}

func TestEstimatePayoff(t *testing.T) {
	t.Parallel()

	est := EstimatePayoff(100000, 1200, 50000, 120)
	assert.True(t, est.Payable)
	assert.Equal(t, 3, est.Months)
	assert.Equal(t, money.Cents(1525), est.TotalInterest)

	est = EstimatePayoff(100000, 1200, 1000, 120)
	assert.False(t, est.Payable)
	assert.Empty(t, est.Schedule)
}

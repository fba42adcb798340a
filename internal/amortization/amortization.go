// Package amortization holds closed-form debt payoff estimates.
package amortization

import (
	"math"

	"github.com/Dan9191/payoff-planner/internal/money"
)

const epsilon = 1e-9

// MonthlyRate converts an APR in basis points to a monthly rate.
func MonthlyRate(aprBps int) float64 {
	return float64(aprBps) / 10000 / 12
}

// MonthsToPayoff returns how many monthly payments retire balance.
// ok is false when payoff is impossible: a non-positive payment, or one that
// does not exceed the first month's interest.
func MonthsToPayoff(balance money.Cents, aprBps int, payment money.Cents) (months int, ok bool) {
	if balance <= 0 {
		return 0, true
	}
	if payment <= 0 {
		return 0, false
	}
	b, p := float64(balance), float64(payment)
	r := MonthlyRate(aprBps)
	if r == 0 {
		return int(math.Ceil(b/p - epsilon)), true
	}
	if p <= b*r {
		return 0, false
	}
	n := -math.Log(1-r*b/p) / math.Log(1+r)
	return int(math.Ceil(n - epsilon)), true
}

// RequiredPaymentForTarget returns the fixed monthly payment that retires
// balance in monthsRemaining payments.
func RequiredPaymentForTarget(balance money.Cents, aprBps int, monthsRemaining int) money.Cents {
	if balance <= 0 {
		return 0
	}
	if monthsRemaining <= 1 {
		return balance
	}
	b, n := float64(balance), float64(monthsRemaining)
	r := MonthlyRate(aprBps)
	if r == 0 {
		return money.RoundFloat(b / n)
	}
	return money.RoundFloat(b * r / (1 - math.Pow(1+r, -n)))
}

// Row is one month of a standalone amortization table.
type Row struct {
	Month     int         `json:"month"`
	Payment   money.Cents `json:"payment_cents"`
	Interest  money.Cents `json:"interest_cents"`
	Principal money.Cents `json:"principal_cents"`
	Balance   money.Cents `json:"balance_cents"`
}

// Schedule amortizes balance at a fixed payment, interest accrued monthly and
// rounded half-up. It stops at payoff or after maxMonths rows.
func Schedule(balance money.Cents, aprBps int, payment money.Cents, maxMonths int) []Row {
	var rows []Row
	for month := 1; balance > 0 && month <= maxMonths; month++ {
		interest := money.MulDiv(balance, int64(aprBps), 120000)
		due := balance + interest
		paid := money.Min(payment, due)
		balance = due - paid
		rows = append(rows, Row{
			Month:     month,
			Payment:   paid,
			Interest:  interest,
			Principal: paid - interest,
			Balance:   balance,
		})
		if paid <= interest {
			break
		}
	}
	return rows
}

// Estimate summarises paying a single debt at a fixed payment.
type Estimate struct {
	Months        int         `json:"months"`
	Payable       bool        `json:"payable"`
	TotalInterest money.Cents `json:"total_interest_cents"`
	Schedule      []Row       `json:"schedule,omitempty"`
}

// EstimatePayoff combines MonthsToPayoff with a schedule capped at maxMonths.
func EstimatePayoff(balance money.Cents, aprBps int, payment money.Cents, maxMonths int) Estimate {
	months, ok := MonthsToPayoff(balance, aprBps, payment)
	est := Estimate{Months: months, Payable: ok}
	if !ok {
		return est
	}
	est.Schedule = Schedule(balance, aprBps, payment, maxMonths)
	for _, row := range est.Schedule {
		est.TotalInterest += row.Interest
	}
	return est
}

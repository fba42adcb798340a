package planner

import (
	"fmt"
	"time"

	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
	"github.com/Dan9191/payoff-planner/internal/utils"
)

// RunID derives the idempotency key of one user/cadence/period run.
func RunID(userID string, cadence Cadence, periodStart time.Time) string {
	return utils.Fingerprint(userID, string(cadence), periodStart.Format("2006-01-02"))
}

// PeriodFor returns the planning window starting on from. Weekly windows are
// seven days. Pay-cycle windows end the day before the next pay date, or
// after horizonDays when no pay date falls inside that range.
func PeriodFor(cadence Cadence, from time.Time, horizonDays int, defs []recurrence.Definition) Period {
	from = recurrence.Day(from)
	if cadence == Weekly {
		end := from.AddDate(0, 0, 6)
		return Period{Start: from, End: end, Label: "week of " + from.Format("2006-01-02")}
	}

	limit := from.AddDate(0, 0, horizonDays)
	end := limit.AddDate(0, 0, -1)
	if next, ok := NextPayDate(defs, from, limit); ok {
		end = next.AddDate(0, 0, -1)
	}
	if end.Before(from) {
		end = from
	}
	return Period{
		Start: from,
		End:   end,
		Label: fmt.Sprintf("pay cycle %s..%s", from.Format("2006-01-02"), end.Format("2006-01-02")),
	}
}

// NextPayDate is the first income occurrence after from and no later than limit.
func NextPayDate(defs []recurrence.Definition, from, limit time.Time) (time.Time, bool) {
	var next time.Time
	found := false
	for _, def := range defs {
		if def.Kind != recurrence.Income || def.Validate() != nil {
			continue
		}
		for _, ev := range recurrence.ExpandRange(def, from.AddDate(0, 0, 1), limit) {
			if !found || ev.Date.Before(next) {
				next, found = ev.Date, true
			}
			break
		}
	}
	return next, found
}

// CashflowIn sums expected income and obligations dated inside the period.
func CashflowIn(defs []recurrence.Definition, period Period) (income, obligations money.Cents, err error) {
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return 0, 0, err
		}
		for _, ev := range recurrence.ExpandRange(def, period.Start, period.End) {
			if ev.Kind == recurrence.Income {
				income += ev.Amount
			} else {
				obligations += ev.Amount
			}
		}
	}
	return income, obligations, nil
}

// Surplus is balance plus income less obligations and the buffer, floored at zero.
func Surplus(available, income, obligations, buffer money.Cents) money.Cents {
	return money.Positive(available + income - obligations - buffer)
}

// Spendable is the cash balance less what the ledger holds for goals.
// Cancelled goals no longer hold their reservation.
func Spendable(balance money.Cents, reserved map[string]money.Cents, goals []Goal) money.Cents {
	cancelled := make(map[string]bool, len(goals))
	for _, g := range goals {
		if g.Status == StatusCancelled {
			cancelled[g.ID] = true
		}
	}
	for id, amount := range reserved {
		if !cancelled[id] {
			balance -= amount
		}
	}
	return balance
}

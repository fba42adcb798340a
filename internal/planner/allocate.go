package planner

import (
	"sort"

	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

// Candidate is a goal eligible for funding in one period.
type Candidate struct {
	Goal      Goal
	Reserved  money.Cents
	Remaining money.Cents
	Required  money.Cents
}

// PeriodsUntilTarget counts the periods, starting with this one, left before
// the goal's target date. Goals without a date, or flexible goals whose date
// has passed, use the cadence default. A passed fixed date leaves one period.
func PeriodsUntilTarget(g Goal, period Period, cadence Cadence, cfg Config) int {
	if g.TargetDate == nil {
		return cfg.defaultPeriods(cadence)
	}
	target := recurrence.Day(*g.TargetDate)
	if target.Before(period.Start) {
		if g.FlexibleDate {
			return cfg.defaultPeriods(cadence)
		}
		return 1
	}
	days := recurrence.DaysBetween(period.Start, target) + 1
	length := period.Days()
	if length < 1 {
		length = 1
	}
	n := (days + length - 1) / length
	if n < 1 {
		n = 1
	}
	return n
}

// RequiredPerPeriod is ceil(remaining / periods).
func RequiredPerPeriod(remaining money.Cents, periods int) money.Cents {
	if remaining <= 0 {
		return 0
	}
	if periods < 1 {
		periods = 1
	}
	p := money.Cents(periods)
	return (remaining + p - 1) / p
}

// Candidates selects active goals of the cadence that still need money and
// returns them in allocation order.
func Candidates(goals []Goal, reserved map[string]money.Cents, cadence Cadence, period Period, cfg Config) []Candidate {
	var out []Candidate
	for _, g := range goals {
		if g.Status != StatusActive || g.Cadence != cadence {
			continue
		}
		r := reserved[g.ID]
		remaining := money.Positive(g.TargetAmount - r)
		if remaining == 0 {
			continue
		}
		out = append(out, Candidate{
			Goal:      g,
			Reserved:  r,
			Remaining: remaining,
			Required:  RequiredPerPeriod(remaining, PeriodsUntilTarget(g, period, cadence, cfg)),
		})
	}
	SortCandidates(out)
	return out
}

// SortCandidates orders by priority ascending, target date ascending with
// undated goals last, required amount descending, then id.
func SortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.Goal.Priority != b.Goal.Priority {
			return a.Goal.Priority < b.Goal.Priority
		}
		switch {
		case a.Goal.TargetDate != nil && b.Goal.TargetDate == nil:
			return true
		case a.Goal.TargetDate == nil && b.Goal.TargetDate != nil:
			return false
		case a.Goal.TargetDate != nil && !a.Goal.TargetDate.Equal(*b.Goal.TargetDate):
			return a.Goal.TargetDate.Before(*b.Goal.TargetDate)
		}
		if a.Required != b.Required {
			return a.Required > b.Required
		}
		return a.Goal.ID < b.Goal.ID
	})
}

// Allocate funds candidates greedily in order. Each goal gets its required
// amount raised to its minimum, then capped by its maximum, its remaining
// need, the surplus left and the per-run ceiling (0 = none).
func Allocate(cands []Candidate, surplus money.Cents, period Period, ceiling money.Cents) []Allocation {
	var out []Allocation
	left := money.Positive(surplus)
	ceilingLeft := ceiling
	for _, c := range cands {
		if left <= 0 || (ceiling > 0 && ceilingLeft <= 0) {
			break
		}
		amount := money.Max(c.Required, c.Goal.MinContribution)
		if c.Goal.MaxContribution > 0 {
			amount = money.Min(amount, c.Goal.MaxContribution)
		}
		amount = money.Min(amount, c.Remaining)
		amount = money.Min(amount, left)
		if ceiling > 0 {
			amount = money.Min(amount, ceilingLeft)
		}
		if amount <= 0 {
			continue
		}

		left -= amount
		ceilingLeft -= amount
		out = append(out, Allocation{
			GoalID:                 c.Goal.ID,
			AmountCents:            amount,
			PeriodStart:            period.Start,
			PeriodEnd:              period.End,
			RequiredPerPeriodCents: c.Required,
			RemainingCents:         c.Remaining - amount,
			ReservedCentsBefore:    c.Reserved,
		})
	}
	return out
}

// Total sums allocation amounts.
func Total(allocs []Allocation) money.Cents {
	var sum money.Cents
	for _, a := range allocs {
		sum += a.AmountCents
	}
	return sum
}

// Package payoff simulates a household's cash day by day over a horizon,
// paying income, bills, subscriptions, debt minimums, savings rules and
// surplus-driven extra debt payments under a payoff strategy.
//
// Simulate is a pure function of its Input. Business conditions such as
// missed bills or unmet savings floors are reported as warnings and counters;
// only invalid input returns an error.
package payoff

import (
	"time"

	"github.com/Dan9191/payoff-planner/internal/apperrors"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

// MaxHorizonMonths bounds a single run to fifty years.
const MaxHorizonMonths = 600

// Simulate walks the horizon one day at a time and returns the full schedule.
func Simulate(in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	start := recurrence.Day(in.StartDate)
	end := recurrence.HorizonEnd(start, in.HorizonMonths)
	arena := buildArena(in, start, end)
	st := newState(in)

	if in.Strategy == Custom && len(in.Rules.DebtPriorityOrder) == 0 {
		st.warn("Custom strategy has no debt priority order; falling back to avalanche")
	}

	cursor := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		st.advance(day)
		first := day.Day() == 1

		if first {
			accrueInterest(st)
		}

		var incomes []recurrence.Event
		for ; cursor < len(arena) && !arena[cursor].Date.After(day); cursor++ {
			ev := arena[cursor]
			switch ev.Kind {
			case recurrence.Income:
				applyIncome(st, ev)
				incomes = append(incomes, ev)
			case recurrence.Bill, recurrence.Subscription:
				payObligation(st, ev)
			case recurrence.DebtMin:
				payDebtMinimum(st, ev)
			}
		}

		if first {
			applyMonthlySavings(st)
		}
		for _, income := range incomes {
			applyPaycheckSavings(st, income)
		}
		if day.Day() == monthEndDay(recurrence.DaysIn(day.Year(), day.Month())) {
			monthEnd(st)
		}

		if st.DebtFreeDate == nil && st.allDebtsPaid() {
			d := day
			st.DebtFreeDate = &d
		}
	}

	return st.result(in.HorizonMonths), nil
}

// buildArena merges the input events with debt minimum events into one
// slice sorted by date and kind precedence. Events outside [start, end] are dropped.
func buildArena(in Input, start, end time.Time) []recurrence.Event {
	arena := make([]recurrence.Event, 0, len(in.Incomes)+len(in.Bills)+len(in.Subscriptions))
	add := func(events []recurrence.Event, kind recurrence.Kind) {
		for _, ev := range events {
			ev.Date = recurrence.Day(ev.Date)
			if ev.Date.Before(start) || ev.Date.After(end) {
				continue
			}
			ev.Kind = kind
			arena = append(arena, ev)
		}
	}
	add(in.Incomes, recurrence.Income)
	add(in.Bills, recurrence.Bill)
	add(in.Subscriptions, recurrence.Subscription)

	for _, d := range in.Debts {
		def := recurrence.Definition{
			ID:         d.ID,
			Name:       d.Name,
			Kind:       recurrence.DebtMin,
			Amount:     d.MinimumPayment,
			Cadence:    recurrence.Monthly,
			DayOfMonth: d.DueDay,
		}
		arena = append(arena, recurrence.ExpandRange(def, start, end)...)
	}

	recurrence.SortEvents(arena)
	return arena
}

// Validate rejects input that cannot produce a meaningful run.
func (in Input) Validate() error {
	if in.StartDate.IsZero() {
		return apperrors.Invalid("start_date", "start date is required")
	}
	if in.HorizonMonths <= 0 || in.HorizonMonths > MaxHorizonMonths {
		return apperrors.Invalid("horizon_months", "must be between 1 and %d, got %d", MaxHorizonMonths, in.HorizonMonths)
	}
	if !in.Strategy.Valid() {
		return apperrors.Invalid("strategy", "unknown strategy %q", in.Strategy)
	}
	if in.Rules.MinBuffer < 0 {
		return apperrors.Invalid("rules.min_buffer", "must not be negative")
	}
	if in.Rules.SavingsFloorPerMonth < 0 {
		return apperrors.Invalid("rules.savings_floor_per_month", "must not be negative")
	}
	if w := in.Rules.HybridWeights; w != nil && (w.APR < 0 || w.Balance < 0) {
		return apperrors.Invalid("rules.hybrid_weights", "weights must not be negative")
	}

	for _, list := range [][]recurrence.Event{in.Incomes, in.Bills, in.Subscriptions} {
		for _, ev := range list {
			if ev.Amount < 0 {
				return apperrors.Invalid("events", "event %s on %s has negative amount", ev.ID, formatDate(ev.Date))
			}
			if ev.Date.IsZero() {
				return apperrors.Invalid("events", "event %s has no date", ev.ID)
			}
		}
	}

	debtIDs := make(map[string]bool, len(in.Debts))
	for _, d := range in.Debts {
		switch {
		case d.ID == "":
			return apperrors.Invalid("debts", "debt id is required")
		case debtIDs[d.ID]:
			return apperrors.Invalid("debts", "duplicate debt id %s", d.ID)
		case d.Balance < 0:
			return apperrors.Invalid("debts", "debt %s has negative balance", d.ID)
		case d.APRBps < 0:
			return apperrors.Invalid("debts", "debt %s has negative APR", d.ID)
		case d.MinimumPayment < 0:
			return apperrors.Invalid("debts", "debt %s has negative minimum payment", d.ID)
		case d.DueDay < 1 || d.DueDay > 31:
			return apperrors.Invalid("debts", "debt %s due day %d outside 1..31", d.ID, d.DueDay)
		}
		debtIDs[d.ID] = true
	}

	goalIDs := make(map[string]bool, len(in.SavingsGoals))
	for _, g := range in.SavingsGoals {
		switch {
		case g.ID == "":
			return apperrors.Invalid("savings_goals", "goal id is required")
		case goalIDs[g.ID]:
			return apperrors.Invalid("savings_goals", "duplicate goal id %s", g.ID)
		case g.Target < 0 || g.Current < 0:
			return apperrors.Invalid("savings_goals", "goal %s has negative amounts", g.ID)
		case g.RuleValue.IsNegative():
			return apperrors.Invalid("savings_goals", "goal %s has negative rule value", g.ID)
		}
		switch g.RuleType {
		case FixedMonthly, FixedPerPaycheck, PercentOfIncome:
		default:
			return apperrors.Invalid("savings_goals", "goal %s has unknown rule type %q", g.ID, g.RuleType)
		}
		goalIDs[g.ID] = true
	}

	for _, t := range in.Rules.TargetPayoffDates {
		if !debtIDs[t.DebtID] {
			return apperrors.Invalid("rules.target_payoff_dates", "unknown debt %s", t.DebtID)
		}
		if t.TargetDate.IsZero() {
			return apperrors.Invalid("rules.target_payoff_dates", "debt %s has no target date", t.DebtID)
		}
	}
	return nil
}

// Comparison is one strategy's outcome over shared input.
type Comparison struct {
	Strategy     Strategy `json:"strategy"`
	Summary      Summary  `json:"summary"`
	WarningCount int      `json:"warning_count"`
}

// Compare runs the same input once per strategy.
func Compare(in Input, strategies ...Strategy) ([]Comparison, error) {
	if len(strategies) == 0 {
		strategies = []Strategy{Avalanche, Snowball, Hybrid}
	}
	out := make([]Comparison, 0, len(strategies))
	for _, s := range strategies {
		run := in
		run.Strategy = s
		res, err := Simulate(run)
		if err != nil {
			return nil, err
		}
		out = append(out, Comparison{Strategy: s, Summary: res.Summary, WarningCount: len(res.Warnings)})
	}
	return out, nil
}

package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/payoff-planner/internal/apperrors"
	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

// Preview is a read-only projection of one goal over future periods.
type Preview struct {
	GoalID                 string       `json:"goal_id"`
	RequiredPerPeriodCents money.Cents  `json:"required_per_period_cents"`
	FundedBy               *time.Time   `json:"funded_by,omitempty"`
	ShortfallCents         money.Cents  `json:"shortfall_cents"`
	Periods                []Allocation `json:"periods"`
}

// Preview runs the allocation loop across consecutive periods of the goal's
// cadence without touching the ledger. Goals of the same cadence compete for
// the projected surplus exactly as they would in real runs.
func (p *Planner) Preview(ctx context.Context, userID, goalID string, periods int, now time.Time) (*Preview, error) {
	if periods < 1 {
		return nil, apperrors.Invalid("periods", "must be at least 1")
	}
	if now.IsZero() {
		now = p.now()
	}
	now = now.UTC()

	goals, err := p.deps.Goals.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	var target *Goal
	for i := range goals {
		if goals[i].ID == goalID {
			target = &goals[i]
		}
	}
	if target == nil {
		return nil, ErrGoalNotFound
	}
	if target.Status == StatusPaused {
		target.Status = StatusActive
	}

	balance, err := p.deps.Cashflow.AvailableBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read available balance: %w", err)
	}
	defs, err := p.deps.Cashflow.RecurringItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read recurring items: %w", err)
	}
	reserved, err := p.deps.Ledger.ReservedByGoal(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read reserved totals: %w", err)
	}
	balance = Spendable(balance, reserved, goals)
	projected := make(map[string]money.Cents, len(reserved))
	for k, v := range reserved {
		projected[k] = v
	}

	out := &Preview{GoalID: goalID, Periods: []Allocation{}}
	from := recurrence.Day(now)
	if projected[goalID] >= target.TargetAmount {
		out.FundedBy = &from
		return out, nil
	}

	horizon := p.cfg.horizonDays(0)
	for i := 0; i < periods; i++ {
		period := PeriodFor(target.Cadence, from, horizon, defs)
		income, obligations, err := CashflowIn(defs, period)
		if err != nil {
			return nil, err
		}
		surplus := Surplus(balance, income, obligations, p.cfg.SafetyBuffer)
		cands := Candidates(goals, projected, target.Cadence, period, p.cfg)
		if i == 0 {
			for _, c := range cands {
				if c.Goal.ID == goalID {
					out.RequiredPerPeriodCents = c.Required
				}
			}
		}

		allocs := Allocate(cands, surplus, period, p.cfg.MaxContributionPerRun)
		for _, a := range allocs {
			projected[a.GoalID] += a.AmountCents
			if a.GoalID == goalID {
				out.Periods = append(out.Periods, a)
			}
		}
		balance += income - obligations - Total(allocs)

		if out.FundedBy == nil && projected[goalID] >= target.TargetAmount {
			end := period.End
			out.FundedBy = &end
			break
		}
		from = period.End.AddDate(0, 0, 1)
	}

	out.ShortfallCents = money.Positive(target.TargetAmount - projected[goalID])
	return out, nil
}

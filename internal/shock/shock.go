// Package shock flags spending spikes and overspent budgets so the planner
// can hold back allocations.
package shock

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/planner"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

const (
	recentDays   = 7
	baselineDays = 28
)

// DefaultRatio triggers when the last week's spend is 1.5x the baseline week.
var DefaultRatio = decimal.NewFromFloat(1.5)

// SpendingReader sums outgoing transactions in [from, to).
type SpendingReader interface {
	SpendBetween(ctx context.Context, userID string, from, to time.Time) (money.Cents, error)
}

// BudgetReader lists budget categories spent past their limit this month.
type BudgetReader interface {
	OverspentBudgets(ctx context.Context, userID string, now time.Time) ([]string, error)
}

type Detector struct {
	spend   SpendingReader
	budgets BudgetReader
	ratio   decimal.Decimal
	log     *logrus.Logger
}

// NewDetector returns a planner.ShockProvider. budgets may be nil; a ratio
// that is not positive falls back to DefaultRatio.
func NewDetector(spend SpendingReader, budgets BudgetReader, ratio decimal.Decimal, log *logrus.Logger) *Detector {
	if !ratio.IsPositive() {
		ratio = DefaultRatio
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Detector{spend: spend, budgets: budgets, ratio: ratio, log: log}
}

var _ planner.ShockProvider = (*Detector)(nil)

// Check reads spend in whole UTC days ending with the day of now.
func (d *Detector) Check(ctx context.Context, userID string, now time.Time) (planner.ShockSignal, error) {
	var sig planner.ShockSignal
	now = now.UTC()
	today := recurrence.Day(now).AddDate(0, 0, 1)
	recentFrom := today.AddDate(0, 0, -recentDays)
	baselineFrom := recentFrom.AddDate(0, 0, -baselineDays)

	recent, err := d.spend.SpendBetween(ctx, userID, recentFrom, today)
	if err != nil {
		return sig, fmt.Errorf("failed to read recent spend: %w", err)
	}
	prior, err := d.spend.SpendBetween(ctx, userID, baselineFrom, recentFrom)
	if err != nil {
		return sig, fmt.Errorf("failed to read baseline spend: %w", err)
	}

	if spike, reason := d.spike(recent, prior); spike {
		sig.Triggered = true
		sig.Reasons = append(sig.Reasons, reason)
	}

	if d.budgets != nil {
		over, err := d.budgets.OverspentBudgets(ctx, userID, now)
		if err != nil {
			return sig, fmt.Errorf("failed to read budgets: %w", err)
		}
		for _, name := range over {
			sig.Triggered = true
			sig.Reasons = append(sig.Reasons, "budget overspent: "+name)
		}
	}

	if sig.Triggered {
		d.log.WithFields(logrus.Fields{
			"user_id": userID,
			"recent":  recent,
			"prior":   prior,
			"reasons": sig.Reasons,
		}).Info("spending shock detected")
	}
	return sig, nil
}

// spike compares the last week against the weekly average of the four weeks
// before it. No baseline spend never triggers.
func (d *Detector) spike(recent, prior money.Cents) (bool, string) {
	if prior <= 0 {
		return false, ""
	}
	weekly := prior.Decimal().Div(decimal.NewFromInt(baselineDays / recentDays))
	limit := weekly.Mul(d.ratio)
	if recent.Decimal().LessThanOrEqual(limit) {
		return false, ""
	}
	return true, fmt.Sprintf("weekly spend %s above %s baseline x%s",
		recent, money.FromDecimal(weekly), d.ratio.String())
}

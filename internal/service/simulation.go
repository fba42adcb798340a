package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payoff-planner/internal/amortization"
	"github.com/Dan9191/payoff-planner/internal/apperrors"
	"github.com/Dan9191/payoff-planner/internal/models"
	"github.com/Dan9191/payoff-planner/internal/payoff"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

// Simulate expands the request's recurring items and runs the payoff engine
func (s *Service) Simulate(ctx context.Context, req models.SimulationRequest) (*payoff.Result, error) {
	in, err := s.buildInput(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := payoff.Simulate(in)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"strategy": in.Strategy,
		"months":   res.Summary.Months,
		"warnings": len(res.Warnings),
	}).Debug("simulation finished")
	return res, nil
}

// Compare runs the request once per strategy
func (s *Service) Compare(ctx context.Context, req models.CompareRequest) ([]payoff.Comparison, error) {
	in, err := s.buildInput(ctx, req.SimulationRequest)
	if err != nil {
		return nil, err
	}
	return payoff.Compare(in, req.Strategies...)
}

func (s *Service) buildInput(ctx context.Context, req models.SimulationRequest) (payoff.Input, error) {
	in := payoff.Input{
		StartDate:     req.StartDate,
		HorizonMonths: req.HorizonMonths,
		Strategy:      req.Strategy,
		Rules:         req.Rules,
		StartingCash:  req.StartingCash,
		SavingsGoals:  req.SavingsGoals,
	}
	if in.Strategy == "" {
		in.Strategy = payoff.Avalanche
	}

	for _, def := range req.Recurring {
		events, err := recurrence.Expand(def, req.StartDate, req.HorizonMonths)
		if err != nil {
			return payoff.Input{}, err
		}
		switch def.Kind {
		case recurrence.Income:
			in.Incomes = append(in.Incomes, events...)
		case recurrence.Subscription:
			in.Subscriptions = append(in.Subscriptions, events...)
		default:
			// debt minimums outside the debt list are paid like bills
			in.Bills = append(in.Bills, events...)
		}
	}

	debts, err := s.resolveDebts(ctx, req.Debts)
	if err != nil {
		return payoff.Input{}, err
	}
	in.Debts = debts
	return in, nil
}

// resolveDebts prices variable-rate debts at the key rate plus margins. The
// key rate is fetched at most once per request.
func (s *Service) resolveDebts(ctx context.Context, inputs []models.DebtInput) ([]payoff.Debt, error) {
	debts := make([]payoff.Debt, 0, len(inputs))
	base := -1
	for _, d := range inputs {
		apr := d.APRBps
		if d.VariableRate {
			if base < 0 {
				if s.rates == nil {
					return nil, apperrors.Invalid("debts.variable_rate", "no key rate source for debt %s", d.ID)
				}
				var err error
				if base, err = s.rates.VariableAPRBps(ctx, 0); err != nil {
					return nil, fmt.Errorf("failed to price variable-rate debt: %w", err)
				}
			}
			apr = base + d.MarginBps
		}
		debts = append(debts, payoff.Debt{
			ID:             d.ID,
			Name:           d.Name,
			Balance:        d.Balance,
			APRBps:         apr,
			MinimumPayment: d.MinimumPayment,
			DueDay:         d.DueDay,
		})
	}
	return debts, nil
}

// EstimateResult is the estimator answer for a single debt
type EstimateResult struct {
	amortization.Estimate
	RequiredPaymentCents *int64 `json:"required_payment_cents,omitempty"`
}

// EstimateDebt projects payoff of one debt at a fixed payment. With
// TargetMonths set it also reports the payment needed to finish in time.
func (s *Service) EstimateDebt(req models.EstimateRequest) EstimateResult {
	months := req.Months
	if months <= 0 {
		months = payoff.MaxHorizonMonths
	}
	out := EstimateResult{Estimate: amortization.EstimatePayoff(req.Balance, req.APRBps, req.Payment, months)}
	if req.TargetMonths > 0 {
		p := int64(amortization.RequiredPaymentForTarget(req.Balance, req.APRBps, req.TargetMonths))
		out.RequiredPaymentCents = &p
	}
	return out
}

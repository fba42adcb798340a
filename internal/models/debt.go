package models

import (
	"time"

	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/payoff"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

// DebtInput is a debt as submitted for simulation. Variable-rate debts are
// priced at the reference key rate plus MarginBps.
type DebtInput struct {
	ID             string      `json:"id" validate:"required"`
	Name           string      `json:"name"`
	Balance        money.Cents `json:"balance_cents" validate:"gte=0"`
	APRBps         int         `json:"apr_bps" validate:"gte=0,lte=100000"`
	VariableRate   bool        `json:"variable_rate"`
	MarginBps      int         `json:"margin_bps" validate:"gte=0"`
	MinimumPayment money.Cents `json:"minimum_payment_cents" validate:"gte=0"`
	DueDay         int         `json:"due_day" validate:"gte=1,lte=31"`
}

// SimulationRequest is the body of POST /simulations
type SimulationRequest struct {
	StartDate     time.Time               `json:"start_date" validate:"required"`
	HorizonMonths int                     `json:"horizon_months" validate:"gte=1,lte=600"`
	Strategy      payoff.Strategy         `json:"strategy" validate:"omitempty,oneof=avalanche snowball hybrid custom"`
	Rules         payoff.Rules            `json:"rules"`
	StartingCash  money.Cents             `json:"starting_cash_cents"`
	Recurring     []recurrence.Definition `json:"recurring" validate:"dive"`
	Debts         []DebtInput             `json:"debts" validate:"dive"`
	SavingsGoals  []payoff.SavingsGoal    `json:"savings_goals"`
}

// CompareRequest is the body of POST /simulations/compare. Strategy is ignored.
type CompareRequest struct {
	SimulationRequest
	Strategies []payoff.Strategy `json:"strategies" validate:"dive,oneof=avalanche snowball hybrid custom"`
}

// PlannerRunRequest is the body of POST /planner/run
type PlannerRunRequest struct {
	Cadence     string `json:"cadence" validate:"required,oneof=weekly paycheck both"`
	HorizonDays int    `json:"horizon_days" validate:"gte=0,lte=60"`
	DryRun      bool   `json:"dry_run"`
}

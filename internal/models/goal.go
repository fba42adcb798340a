package models

import (
	"time"

	"github.com/Dan9191/payoff-planner/internal/money"
)

// GoalRequest is the body of POST /goals
type GoalRequest struct {
	Name            string      `json:"name" validate:"required,max=128"`
	Cadence         string      `json:"cadence" validate:"required,oneof=weekly paycheck"`
	Priority        int         `json:"priority" validate:"gte=0"`
	TargetAmount    money.Cents `json:"target_amount_cents" validate:"gt=0"`
	TargetDate      *time.Time  `json:"target_date,omitempty"`
	MinContribution money.Cents `json:"min_contribution_cents" validate:"gte=0"`
	MaxContribution money.Cents `json:"max_contribution_cents" validate:"gte=0"`
	FlexibleDate    bool        `json:"flexible_date"`
}

// GoalStatusRequest is the body of PUT /goals/{id}/status. Funded is set by
// the planner only.
type GoalStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active paused cancelled"`
}

// EstimateRequest carries the query of GET /debts/estimate
type EstimateRequest struct {
	Balance      money.Cents `validate:"gte=0"`
	APRBps       int         `validate:"gte=0,lte=100000"`
	Payment      money.Cents `validate:"gte=0"`
	Months       int         `validate:"gte=0,lte=600"`
	TargetMonths int         `validate:"gte=0,lte=600"`
}

package models

import (
	"time"

	"github.com/Dan9191/payoff-planner/internal/money"
)

// Account is a cash account whose balance the planner may allocate from
type Account struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Balance   money.Cents `json:"balance_cents"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

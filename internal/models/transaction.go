package models

import (
	"time"

	"github.com/Dan9191/payoff-planner/internal/money"
)

const (
	TransactionDebit  = "debit"
	TransactionCredit = "credit"
)

// Transaction represents a posted account movement. Debits are spending.
type Transaction struct {
	ID          int64       `json:"id"`
	AccountID   int64       `json:"account_id"`
	Amount      money.Cents `json:"amount_cents"`
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// Budget caps monthly debit spending in one category
type Budget struct {
	ID           int64       `json:"id"`
	UserID       int64       `json:"user_id"`
	Category     string      `json:"category"`
	MonthlyLimit money.Cents `json:"monthly_limit_cents"`
}

// TransactionRequest posts a movement on one of the caller's accounts
type TransactionRequest struct {
	AccountID   int64       `json:"account_id" validate:"required,gt=0"`
	Amount      money.Cents `json:"amount_cents" validate:"gt=0"`
	Type        string      `json:"type" validate:"required,oneof=debit credit"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	OccurredAt  *time.Time  `json:"occurred_at"`
}

type BudgetRequest struct {
	Category     string      `json:"category" validate:"required"`
	MonthlyLimit money.Cents `json:"monthly_limit_cents" validate:"gte=0"`
}

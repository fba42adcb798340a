package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/payoff-planner/internal/models"
	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/shock"
)

var (
	_ shock.SpendingReader = (*Repository)(nil)
	_ shock.BudgetReader   = (*Repository)(nil)
)

// CreateTransaction records a posted transaction on one of userID's accounts
// and moves the account balance in the same database transaction
func (r *Repository) CreateTransaction(ctx context.Context, userID int64, t *models.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	delta := t.Amount
	if t.Type == models.TransactionDebit {
		delta = -delta
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE planner.accounts SET balance_cents = balance_cents + $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2 AND user_id = $3`, delta, t.AccountID, userID)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	} else if n == 0 {
		return fmt.Errorf("account %d: %w", t.AccountID, ErrNotFound)
	}

	query := `
		INSERT INTO planner.transactions (account_id, amount_cents, type, category, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err = tx.QueryRowContext(ctx, query, t.AccountID, t.Amount, t.Type, t.Category, t.Description, t.OccurredAt).
		Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertBudget sets the monthly limit for a category
func (r *Repository) UpsertBudget(ctx context.Context, b *models.Budget) error {
	query := `
		INSERT INTO planner.budgets (user_id, category, monthly_limit_cents)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, category) DO UPDATE SET monthly_limit_cents = EXCLUDED.monthly_limit_cents
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, b.UserID, b.Category, b.MonthlyLimit).Scan(&b.ID); err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// SpendBetween sums the user's debits in [from, to)
func (r *Repository) SpendBetween(ctx context.Context, userID string, from, to time.Time) (money.Cents, error) {
	var total money.Cents
	query := `
		SELECT COALESCE(SUM(t.amount_cents), 0)
		FROM planner.transactions t
		JOIN planner.accounts a ON a.id = t.account_id
		WHERE a.user_id = $1 AND t.type = $2 AND t.occurred_at >= $3 AND t.occurred_at < $4`
	if err := r.db.QueryRowContext(ctx, query, userID, models.TransactionDebit, from, to).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum spending: %w", err)
	}
	return total, nil
}

// OverspentBudgets lists categories whose month-to-date debits exceed the budget
func (r *Repository) OverspentBudgets(ctx context.Context, userID string, now time.Time) ([]string, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	query := `
		SELECT b.category
		FROM planner.budgets b
		JOIN planner.accounts a ON a.user_id = b.user_id
		JOIN planner.transactions t ON t.account_id = a.id AND t.category = b.category
		WHERE b.user_id = $1 AND t.type = $2 AND t.occurred_at >= $3 AND t.occurred_at <= $4
		GROUP BY b.category, b.monthly_limit_cents
		HAVING SUM(t.amount_cents) > b.monthly_limit_cents
		ORDER BY b.category`
	rows, err := r.db.QueryContext(ctx, query, userID, models.TransactionDebit, monthStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

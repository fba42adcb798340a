package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/Dan9191/payoff-planner/internal/apperrors"
	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/planner"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
	"github.com/Dan9191/payoff-planner/internal/utils"
)

var (
	_ planner.CashflowReader = (*Repository)(nil)
	_ planner.GoalStore      = (*Repository)(nil)
	_ planner.FundingLedger  = (*Repository)(nil)
	_ planner.RunLog         = (*Repository)(nil)
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// CreateRecurringItem stores a recurring definition for the user. Ids are
// unique per user; a taken id is a configuration error.
func (r *Repository) CreateRecurringItem(ctx context.Context, userID string, def recurrence.Definition) error {
	var weekday sql.NullInt16
	if def.Weekday != nil {
		weekday = sql.NullInt16{Int16: int16(*def.Weekday), Valid: true}
	}
	var anchor sql.NullTime
	if !def.Anchor.IsZero() {
		anchor = sql.NullTime{Time: def.Anchor, Valid: true}
	}
	query := `
		INSERT INTO planner.recurring_items
			(id, user_id, name, kind, amount_cents, cadence, interval, day_of_month, weekday, anchor, essential, cancelable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query, def.ID, userID, def.Name, def.Kind, def.Amount, def.Cadence,
		def.Interval, def.DayOfMonth, weekday, anchor, def.Essential, def.Cancelable)
	if isUniqueViolation(err) {
		return apperrors.Invalid("id", "recurring item %s already exists", def.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create recurring item: %w", err)
	}
	return nil
}

// RecurringItems loads the user's recurring income and obligations
func (r *Repository) RecurringItems(ctx context.Context, userID string) ([]recurrence.Definition, error) {
	query := `
		SELECT id, name, kind, amount_cents, cadence, interval, day_of_month, weekday, anchor, essential, cancelable
		FROM planner.recurring_items
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring items: %w", err)
	}
	defer rows.Close()

	var defs []recurrence.Definition
	for rows.Next() {
		var (
			def     recurrence.Definition
			weekday sql.NullInt16
			anchor  sql.NullTime
		)
		if err := rows.Scan(&def.ID, &def.Name, &def.Kind, &def.Amount, &def.Cadence, &def.Interval,
			&def.DayOfMonth, &weekday, &anchor, &def.Essential, &def.Cancelable); err != nil {
			return nil, fmt.Errorf("failed to scan recurring item: %w", err)
		}
		applyNullable(&def, weekday, anchor)
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recurring items: %w", err)
	}
	return defs, nil
}

func applyNullable(def *recurrence.Definition, weekday sql.NullInt16, anchor sql.NullTime) {
	if weekday.Valid {
		wd := time.Weekday(weekday.Int16)
		def.Weekday = &wd
	}
	if anchor.Valid {
		def.Anchor = recurrence.Day(anchor.Time)
	}
}

// CreateGoal stores a purchase goal
func (r *Repository) CreateGoal(ctx context.Context, g *planner.Goal) error {
	query := `
		INSERT INTO planner.purchase_goals
			(id, user_id, name, cadence, priority, target_amount_cents, target_date,
			 min_contribution_cents, max_contribution_cents, flexible_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	var target sql.NullTime
	if g.TargetDate != nil {
		target = sql.NullTime{Time: *g.TargetDate, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, g.ID, g.UserID, g.Name, g.Cadence, g.Priority, g.TargetAmount, target,
		g.MinContribution, g.MaxContribution, g.FlexibleDate, g.Status)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// ListGoals returns every goal of the user regardless of status
func (r *Repository) ListGoals(ctx context.Context, userID string) ([]planner.Goal, error) {
	query := `
		SELECT id, user_id, name, cadence, priority, target_amount_cents, target_date,
		       min_contribution_cents, max_contribution_cents, flexible_date, status
		FROM planner.purchase_goals
		WHERE user_id = $1
		ORDER BY priority, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []planner.Goal
	for rows.Next() {
		var (
			g      planner.Goal
			uid    int64
			target sql.NullTime
		)
		if err := rows.Scan(&g.ID, &uid, &g.Name, &g.Cadence, &g.Priority, &g.TargetAmount, &target,
			&g.MinContribution, &g.MaxContribution, &g.FlexibleDate, &g.Status); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		g.UserID = strconv.FormatInt(uid, 10)
		if target.Valid {
			d := recurrence.Day(target.Time)
			g.TargetDate = &d
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read goals: %w", err)
	}
	return goals, nil
}

// UpdateGoalStatus sets a goal's lifecycle status
func (r *Repository) UpdateGoalStatus(ctx context.Context, goalID string, status planner.GoalStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE planner.purchase_goals SET status = $1 WHERE id = $2`, status, goalID)
	if err != nil {
		return fmt.Errorf("failed to update goal status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}
	return nil
}

// ReservedByGoal sums ledger entries per goal; releases are negative
func (r *Repository) ReservedByGoal(ctx context.Context, userID string) (map[string]money.Cents, error) {
	query := `
		SELECT goal_id, COALESCE(SUM(amount_cents), 0)
		FROM planner.funding_ledger
		WHERE user_id = $1
		GROUP BY goal_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reserved totals: %w", err)
	}
	defer rows.Close()

	out := map[string]money.Cents{}
	for rows.Next() {
		var (
			goalID string
			sum    money.Cents
		)
		if err := rows.Scan(&goalID, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan reserved total: %w", err)
		}
		out[goalID] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reserved totals: %w", err)
	}
	return out, nil
}

// HasRun reports whether a run id was already recorded
func (r *Repository) HasRun(ctx context.Context, runID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM planner.planner_runs WHERE run_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, runID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check run: %w", err)
	}
	return exists, nil
}

// Append writes a run record and its ledger entries in one transaction. A
// duplicate run id rolls back and returns planner.ErrRunExists.
func (r *Repository) Append(ctx context.Context, run planner.RunRecord, entries []planner.LedgerEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO planner.planner_runs (run_id, user_id, cadence, period_start, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.RunID, run.UserID, run.Cadence, run.PeriodStart, run.Status, run.At)
	if isUniqueViolation(err) {
		return planner.ErrRunExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO planner.funding_ledger
			(id, user_id, goal_id, amount_cents, type, source, effective_date, run_id, hmac)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("failed to prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx, e.ID, e.UserID, e.GoalID, e.AmountCents, e.Type, e.Source,
			e.EffectiveDate, e.RunID, r.signEntry(e))
		if isUniqueViolation(err) {
			return planner.ErrRunExists
		}
		if err != nil {
			return fmt.Errorf("failed to insert ledger entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func (r *Repository) signEntry(e planner.LedgerEntry) string {
	return utils.SignedFingerprint(r.hmacSecret, e.ID, e.UserID, e.GoalID,
		strconv.FormatInt(int64(e.AmountCents), 10), string(e.Type), e.RunID)
}

// LastCompletedRun returns when the user's latest completed run was recorded
func (r *Repository) LastCompletedRun(ctx context.Context, userID string) (time.Time, bool, error) {
	var last sql.NullTime
	query := `SELECT MAX(created_at) FROM planner.planner_runs WHERE user_id = $1 AND status = $2`
	if err := r.db.QueryRowContext(ctx, query, userID, planner.RunCompleted).Scan(&last); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last run: %w", err)
	}
	return last.Time, last.Valid, nil
}

// ActiveUserIDs lists users with at least one active goal
func (r *Repository) ActiveUserIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM planner.purchase_goals WHERE status = $1 ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, planner.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return ids, rows.Err()
}

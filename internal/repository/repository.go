package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/payoff-planner/internal/models"
	"github.com/Dan9191/payoff-planner/internal/money"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("not found")

// Repository provides database operations
type Repository struct {
	db         *sql.DB
	hmacSecret string
}

// NewRepository initializes a new repository. hmacSecret signs funding ledger rows.
func NewRepository(db *sql.DB, hmacSecret string) *Repository {
	return &Repository{db: db, hmacSecret: hmacSecret}
}

const schema = `
CREATE SCHEMA IF NOT EXISTS planner;

CREATE TABLE IF NOT EXISTS planner.users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS planner.accounts (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES planner.users(id),
	balance_cents BIGINT NOT NULL DEFAULT 0,
	currency TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS planner.transactions (
	id BIGSERIAL PRIMARY KEY,
	account_id BIGINT NOT NULL REFERENCES planner.accounts(id),
	amount_cents BIGINT NOT NULL,
	type TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS planner.budgets (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES planner.users(id),
	category TEXT NOT NULL,
	monthly_limit_cents BIGINT NOT NULL,
	UNIQUE (user_id, category)
);

CREATE TABLE IF NOT EXISTS planner.recurring_items (
	id TEXT NOT NULL,
	user_id BIGINT NOT NULL REFERENCES planner.users(id),
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	amount_cents BIGINT NOT NULL,
	cadence TEXT NOT NULL,
	interval INT NOT NULL DEFAULT 0,
	day_of_month INT NOT NULL DEFAULT 0,
	weekday SMALLINT,
	anchor DATE,
	essential BOOLEAN NOT NULL DEFAULT FALSE,
	cancelable BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS planner.purchase_goals (
	id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES planner.users(id),
	name TEXT NOT NULL,
	cadence TEXT NOT NULL,
	priority INT NOT NULL DEFAULT 0,
	target_amount_cents BIGINT NOT NULL,
	target_date DATE,
	min_contribution_cents BIGINT NOT NULL DEFAULT 0,
	max_contribution_cents BIGINT NOT NULL DEFAULT 0,
	flexible_date BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS planner.planner_runs (
	run_id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES planner.users(id),
	cadence TEXT NOT NULL,
	period_start DATE NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS planner.funding_ledger (
	id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES planner.users(id),
	goal_id TEXT NOT NULL REFERENCES planner.purchase_goals(id),
	amount_cents BIGINT NOT NULL,
	type TEXT NOT NULL,
	source TEXT NOT NULL,
	effective_date DATE NOT NULL,
	run_id TEXT NOT NULL,
	hmac TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (run_id, goal_id)
);
`

// Migrate creates the schema if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO planner.users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, "email = $1", email)
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, "id = $1", id)
}

func (r *Repository) findUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM planner.users
		WHERE ` + where
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CreateAccount creates a new account in the database
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO planner.accounts (user_id, balance_cents, currency, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, account.UserID, account.Balance, account.Currency).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// AvailableBalance sums the user's account balances
func (r *Repository) AvailableBalance(ctx context.Context, userID string) (money.Cents, error) {
	var total money.Cents
	query := `SELECT COALESCE(SUM(balance_cents), 0) FROM planner.accounts WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum balances: %w", err)
	}
	return total, nil
}

package payoff

import (
	"time"

	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
	"github.com/shopspring/decimal"
)

// Strategy orders debts for surplus (extra) payments.
type Strategy string

const (
	Avalanche Strategy = "avalanche"
	Snowball  Strategy = "snowball"
	Hybrid    Strategy = "hybrid"
	Custom    Strategy = "custom"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case Avalanche, Snowball, Hybrid, Custom:
		return true
	}
	return false
}

// HybridWeights blend normalized APR and balance into one score.
type HybridWeights struct {
	APR     float64 `json:"apr"`
	Balance float64 `json:"balance"`
}

// DefaultHybridWeights favours interest rate over balance.
var DefaultHybridWeights = HybridWeights{APR: 0.6, Balance: 0.4}

// TargetPayoff asks for a debt to be retired by a date.
type TargetPayoff struct {
	DebtID     string    `json:"debt_id" validate:"required"`
	TargetDate time.Time `json:"target_date" validate:"required"`
}

// Rules tune how the engine spends cash.
type Rules struct {
	SavingsFloorPerMonth            money.Cents    `json:"savings_floor_per_month_cents"`
	MinBuffer                       money.Cents    `json:"min_buffer_cents"`
	AllowCancelSubscriptions        bool           `json:"allow_cancel_subscriptions"`
	TreatNonessentialBillsSkippable bool           `json:"treat_nonessential_bills_skippable"`
	DebtPriorityOrder               []string       `json:"debt_priority_order,omitempty"`
	HybridWeights                   *HybridWeights `json:"hybrid_weights,omitempty"`
	TargetPayoffDates               []TargetPayoff `json:"target_payoff_dates,omitempty"`
}

// Debt is a debt account as it stands at the start of a simulation.
type Debt struct {
	ID             string      `json:"id" validate:"required"`
	Name           string      `json:"name"`
	Balance        money.Cents `json:"balance_cents" validate:"gte=0"`
	APRBps         int         `json:"apr_bps" validate:"gte=0"`
	MinimumPayment money.Cents `json:"minimum_payment_cents" validate:"gte=0"`
	DueDay         int         `json:"due_day" validate:"gte=1,lte=31"`
}

// RuleType decides when and how much a savings goal receives.
type RuleType string

const (
	FixedMonthly     RuleType = "fixed_monthly"
	FixedPerPaycheck RuleType = "fixed_per_paycheck"
	PercentOfIncome  RuleType = "percent_of_income"
)

// SavingsGoal is a savings bucket filled by its rule. RuleValue is in dollars
// for fixed rules and in percent for PercentOfIncome. A zero Target is uncapped.
type SavingsGoal struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name"`
	Target    money.Cents     `json:"target_cents" validate:"gte=0"`
	Current   money.Cents     `json:"current_cents" validate:"gte=0"`
	RuleType  RuleType        `json:"rule_type" validate:"required,oneof=fixed_monthly fixed_per_paycheck percent_of_income"`
	RuleValue decimal.Decimal `json:"rule_value"`
	Priority  int             `json:"priority"`
}

// Input is everything one simulation run needs. Event lists are already
// expanded; their kind is taken from the list they arrive in.
type Input struct {
	StartDate     time.Time          `json:"start_date"`
	HorizonMonths int                `json:"horizon_months"`
	Strategy      Strategy           `json:"strategy"`
	Rules         Rules              `json:"rules"`
	StartingCash  money.Cents        `json:"starting_cash_cents"`
	Incomes       []recurrence.Event `json:"incomes"`
	Bills         []recurrence.Event `json:"bills"`
	Subscriptions []recurrence.Event `json:"subscriptions"`
	Debts         []Debt             `json:"debts"`
	SavingsGoals  []SavingsGoal      `json:"savings_goals"`
}

// ItemType classifies a schedule entry.
type ItemType string

const (
	ItemIncome       ItemType = "income"
	ItemBill         ItemType = "bill"
	ItemSubscription ItemType = "subscription"
	ItemDebtMin      ItemType = "debt_min"
	ItemDebtExtra    ItemType = "debt_extra"
	ItemSavings      ItemType = "savings"
	ItemNote         ItemType = "note"
)

type DebtBalance struct {
	ID      string      `json:"id"`
	Balance money.Cents `json:"balance_cents"`
}

type SavingsBalance struct {
	ID      string      `json:"id"`
	Current money.Cents `json:"current_cents"`
}

// Snapshot is the simulated position right after a schedule item.
type Snapshot struct {
	Cash    money.Cents      `json:"cash_cents"`
	Debts   []DebtBalance    `json:"debts"`
	Savings []SavingsBalance `json:"savings"`
}

// ScheduleItem is one cash-affecting or informational event of a run.
type ScheduleItem struct {
	Date     time.Time   `json:"date"`
	Type     ItemType    `json:"type"`
	EntityID string      `json:"entity_id,omitempty"`
	Amount   money.Cents `json:"amount_cents"`
	Notes    string      `json:"notes,omitempty"`
	Snapshot Snapshot    `json:"balance_snapshot"`
}

type Summary struct {
	DebtFreeDate        *time.Time  `json:"debt_free_date"`
	TotalInterest       money.Cents `json:"total_interest_cents"`
	Months              int         `json:"months"`
	MissedBillsCount    int         `json:"missed_bills_count"`
	MissedDebtMinsCount int         `json:"missed_debt_mins_count"`
}

type EndingBalances struct {
	Debts      []DebtBalance    `json:"debts"`
	Savings    []SavingsBalance `json:"savings"`
	CashBuffer money.Cents      `json:"cash_buffer_cents"`
}

// Result is the full output of Simulate.
type Result struct {
	Summary        Summary        `json:"summary"`
	Schedule       []ScheduleItem `json:"schedule"`
	EndingBalances EndingBalances `json:"ending_balances"`
	Warnings       []string       `json:"warnings"`
}

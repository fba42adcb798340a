package planner

import (
	"errors"
	"time"

	"github.com/Dan9191/payoff-planner/internal/money"
)

var (
	// ErrRunExists is returned by FundingLedger.AppendRun when the run id was already written.
	ErrRunExists = errors.New("planner run already recorded")
	// ErrGoalNotFound is returned by Preview for an unknown goal.
	ErrGoalNotFound = errors.New("goal not found")
)

// Cadence is how often a goal is funded.
type Cadence string

const (
	Weekly   Cadence = "weekly"
	Paycheck Cadence = "paycheck"
	Both     Cadence = "both"
)

func (c Cadence) runs() []Cadence {
	switch c {
	case Weekly, Paycheck:
		return []Cadence{c}
	case Both:
		return []Cadence{Weekly, Paycheck}
	}
	return nil
}

type GoalStatus string

const (
	StatusActive    GoalStatus = "active"
	StatusPaused    GoalStatus = "paused"
	StatusFunded    GoalStatus = "funded"
	StatusCancelled GoalStatus = "cancelled"
)

// Goal is a purchase or savings goal funded by the planner. Zero
// MinContribution and MaxContribution mean no bound.
type Goal struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Name            string      `json:"name"`
	Cadence         Cadence     `json:"cadence"`
	Priority        int         `json:"priority"`
	TargetAmount    money.Cents `json:"target_amount_cents"`
	TargetDate      *time.Time  `json:"target_date,omitempty"`
	MinContribution money.Cents `json:"min_contribution_cents,omitempty"`
	MaxContribution money.Cents `json:"max_contribution_cents,omitempty"`
	FlexibleDate    bool        `json:"flexible_date"`
	Status          GoalStatus  `json:"status"`
}

// Period is one weekly or pay-cycle window; both ends are inclusive.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// Days is the number of calendar days in the period.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start)/(24*time.Hour)) + 1
}

type EntryType string

const (
	EntryReserve      EntryType = "reserve"
	EntryRelease      EntryType = "release"
	EntryManualAdjust EntryType = "manual_adjust"
)

// SourceSurplus tags entries written by a planner run.
const SourceSurplus = "surplus"

// LedgerEntry is an append-only funding record. Release entries carry a
// negative amount.
type LedgerEntry struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	GoalID        string      `json:"goal_id"`
	AmountCents   money.Cents `json:"amount_cents"`
	Type          EntryType   `json:"type"`
	Source        string      `json:"source"`
	EffectiveDate time.Time   `json:"effective_date"`
	RunID         string      `json:"run_id"`
}

// Allocation is the amount reserved for one goal in one period.
type Allocation struct {
	GoalID                 string      `json:"goal_id"`
	AmountCents            money.Cents `json:"amount_cents"`
	PeriodStart            time.Time   `json:"period_start"`
	PeriodEnd              time.Time   `json:"period_end"`
	RequiredPerPeriodCents money.Cents `json:"required_per_period_cents"`
	RemainingCents         money.Cents `json:"remaining_cents"`
	ReservedCentsBefore    money.Cents `json:"reserved_cents_before"`
}

type RunStatus string

const (
	RunCompleted    RunStatus = "completed"
	RunShockSkipped RunStatus = "shock_skipped"
)

// RunRecord marks a run id as attempted.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	UserID      string    `json:"user_id"`
	Cadence     Cadence   `json:"cadence"`
	PeriodStart time.Time `json:"period_start"`
	Status      RunStatus `json:"status"`
	At          time.Time `json:"at"`
}

// ShockSignal reports anomalous spending or budget overspend.
type ShockSignal struct {
	Triggered bool     `json:"triggered"`
	Reasons   []string `json:"reasons,omitempty"`
}

type ShockMode string

const (
	ShockOff     ShockMode = "off"
	ShockObserve ShockMode = "observe"
	ShockApply   ShockMode = "apply"
)

// ShockPolicy tells the caller how a triggered shock signal was handled.
type ShockPolicy struct {
	Mode      ShockMode `json:"mode"`
	Triggered bool      `json:"triggered"`
	Reasons   []string  `json:"reasons,omitempty"`
	Skipped   bool      `json:"skipped"`
}

// Config is built once by the caller; the planner never reads the environment.
type Config struct {
	Enabled                bool
	SafetyBuffer           money.Cents
	Cooldown               time.Duration
	ShockMode              ShockMode
	MaxContributionPerRun  money.Cents
	DefaultHorizonDays     int
	DefaultWeeklyPeriods   int
	DefaultPaycheckPeriods int
}

// DefaultConfig keeps a $100 buffer and observes shocks without acting on them.
func DefaultConfig() Config {
	return Config{
		Enabled:                true,
		SafetyBuffer:           10000,
		ShockMode:              ShockObserve,
		DefaultHorizonDays:     14,
		DefaultWeeklyPeriods:   8,
		DefaultPaycheckPeriods: 4,
	}
}

func (c Config) defaultPeriods(cadence Cadence) int {
	if cadence == Paycheck {
		if c.DefaultPaycheckPeriods > 0 {
			return c.DefaultPaycheckPeriods
		}
		return 4
	}
	if c.DefaultWeeklyPeriods > 0 {
		return c.DefaultWeeklyPeriods
	}
	return 8
}

func (c Config) horizonDays(requested int) int {
	if requested > 0 {
		return requested
	}
	if c.DefaultHorizonDays > 0 {
		return c.DefaultHorizonDays
	}
	return 14
}

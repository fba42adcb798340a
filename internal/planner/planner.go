package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payoff-planner/internal/apperrors"
	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

// CashflowReader is the read model for balances and recurring cash movement.
type CashflowReader interface {
	AvailableBalance(ctx context.Context, userID string) (money.Cents, error)
	RecurringItems(ctx context.Context, userID string) ([]recurrence.Definition, error)
}

type GoalStore interface {
	ListGoals(ctx context.Context, userID string) ([]Goal, error)
	UpdateGoalStatus(ctx context.Context, goalID string, status GoalStatus) error
}

// FundingLedger is append-only. Append must write the run record and its
// entries atomically and return ErrRunExists when the run id is taken.
type FundingLedger interface {
	ReservedByGoal(ctx context.Context, userID string) (map[string]money.Cents, error)
	HasRun(ctx context.Context, runID string) (bool, error)
	Append(ctx context.Context, run RunRecord, entries []LedgerEntry) error
}

type RunLog interface {
	LastCompletedRun(ctx context.Context, userID string) (time.Time, bool, error)
}

type ShockProvider interface {
	Check(ctx context.Context, userID string, now time.Time) (ShockSignal, error)
}

// Deps are the collaborators of a Planner. Shock and Log are optional.
type Deps struct {
	Cashflow CashflowReader
	Goals    GoalStore
	Ledger   FundingLedger
	Runs     RunLog
	Shock    ShockProvider
	Log      logrus.FieldLogger
}

type Planner struct {
	cfg  Config
	deps Deps
	log  logrus.FieldLogger
	now  func() time.Time
}

func New(cfg Config, deps Deps) *Planner {
	log := deps.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Planner{cfg: cfg, deps: deps, log: log, now: time.Now}
}

// Request is one planner invocation. A zero Now means the current time.
type Request struct {
	UserID      string
	Cadence     Cadence
	HorizonDays int
	DryRun      bool
	Now         time.Time
}

// Result carries allocations for every cadence that ran. Skipped names the
// gate that stopped the whole invocation, if any.
type Result struct {
	Allocations []Allocation `json:"allocations"`
	ShockPolicy *ShockPolicy `json:"shock_policy,omitempty"`
	RunIDs      []string     `json:"run_ids,omitempty"`
	Funded      []string     `json:"funded_goal_ids,omitempty"`
	Skipped     string       `json:"skipped,omitempty"`
	Periods     []Period     `json:"periods,omitempty"`
	Surplus     money.Cents  `json:"surplus_cents"`
}

const (
	SkipDisabled = "disabled"
	SkipCooldown = "cooldown"
	SkipShock    = "shock"
)

func (p *Planner) validate(req Request) error {
	if req.UserID == "" {
		return apperrors.Invalid("user_id", "is required")
	}
	if req.Cadence.runs() == nil {
		return apperrors.Invalid("cadence", "unknown cadence %q", req.Cadence)
	}
	if req.HorizonDays < 0 {
		return apperrors.Invalid("horizon_days", "must not be negative")
	}
	return nil
}

// Run allocates the current period's surplus to the user's goals. Gated
// runs return an empty allocation list and no error.
func (p *Planner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}
	now := req.Now
	if now.IsZero() {
		now = p.now()
	}
	now = now.UTC()
	log := p.log.WithFields(logrus.Fields{"user_id": req.UserID, "cadence": req.Cadence})
	res := &Result{Allocations: []Allocation{}}

	if !p.cfg.Enabled {
		res.Skipped = SkipDisabled
		return res, nil
	}

	if p.cfg.Cooldown > 0 && p.deps.Runs != nil {
		last, ok, err := p.deps.Runs.LastCompletedRun(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to read last planner run: %w", err)
		}
		if ok && now.Sub(last) < p.cfg.Cooldown {
			log.WithField("last_run", last).Info("planner run skipped by cooldown")
			res.Skipped = SkipCooldown
			return res, nil
		}
	}

	policy := p.checkShock(ctx, req.UserID, now, log)
	res.ShockPolicy = policy

	available, err := p.deps.Cashflow.AvailableBalance(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read available balance: %w", err)
	}
	defs, err := p.deps.Cashflow.RecurringItems(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read recurring items: %w", err)
	}
	goals, err := p.deps.Goals.ListGoals(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	reserved, err := p.deps.Ledger.ReservedByGoal(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read reserved totals: %w", err)
	}
	if reserved == nil {
		reserved = map[string]money.Cents{}
	}
	available = Spendable(available, reserved, goals)

	today := recurrence.Day(now)
	horizon := p.cfg.horizonDays(req.HorizonDays)
	for _, cadence := range req.Cadence.runs() {
		period := PeriodFor(cadence, today, horizon, defs)
		runID := RunID(req.UserID, cadence, period.Start)
		clog := log.WithFields(logrus.Fields{"cadence": cadence, "run_id": runID})

		done, err := p.deps.Ledger.HasRun(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to check planner run: %w", err)
		}
		if done {
			clog.Info("planner run already recorded for period")
			continue
		}

		if policy != nil && policy.Skipped {
			res.Skipped = SkipShock
			if !req.DryRun {
				run := RunRecord{RunID: runID, UserID: req.UserID, Cadence: cadence, PeriodStart: period.Start, Status: RunShockSkipped, At: now}
				if err := p.deps.Ledger.Append(ctx, run, nil); err != nil && !errors.Is(err, ErrRunExists) {
					return nil, fmt.Errorf("failed to record shock-skipped run: %w", err)
				}
			}
			clog.WithField("reasons", policy.Reasons).Warn("planner run skipped by shock signal")
			continue
		}

		income, obligations, err := CashflowIn(defs, period)
		if err != nil {
			return nil, err
		}
		surplus := Surplus(available, income, obligations, p.cfg.SafetyBuffer)
		cands := Candidates(goals, reserved, cadence, period, p.cfg)
		res.Periods = append(res.Periods, period)
		res.Surplus += surplus
		if len(cands) == 0 {
			clog.Debug("no eligible goals")
			continue
		}

		allocs := Allocate(cands, surplus, period, p.cfg.MaxContributionPerRun)
		clog.WithFields(logrus.Fields{
			"surplus":     surplus,
			"allocations": len(allocs),
			"total":       Total(allocs),
		}).Info("planner allocated surplus")

		if !req.DryRun {
			err := p.commit(ctx, req.UserID, cadence, period, runID, now, allocs)
			if errors.Is(err, ErrRunExists) {
				clog.Info("planner run recorded concurrently")
				continue
			}
			if err != nil {
				return nil, err
			}
		}

		res.Allocations = append(res.Allocations, allocs...)
		res.RunIDs = append(res.RunIDs, runID)
		available -= Total(allocs)
		for _, a := range allocs {
			reserved[a.GoalID] += a.AmountCents
		}
	}

	if !req.DryRun {
		funded, err := p.markFunded(ctx, goals, reserved)
		res.Funded = funded
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (p *Planner) checkShock(ctx context.Context, userID string, now time.Time, log logrus.FieldLogger) *ShockPolicy {
	if p.deps.Shock == nil || p.cfg.ShockMode == ShockOff || p.cfg.ShockMode == "" {
		return nil
	}
	sig, err := p.deps.Shock.Check(ctx, userID, now)
	if err != nil {
		log.WithError(err).Warn("shock signal unavailable")
		return nil
	}
	if !sig.Triggered {
		return nil
	}
	return &ShockPolicy{
		Mode:      p.cfg.ShockMode,
		Triggered: true,
		Reasons:   sig.Reasons,
		Skipped:   p.cfg.ShockMode == ShockApply,
	}
}

func (p *Planner) commit(ctx context.Context, userID string, cadence Cadence, period Period, runID string,
	now time.Time, allocs []Allocation) error {
	entries := make([]LedgerEntry, 0, len(allocs))
	for _, a := range allocs {
		entries = append(entries, LedgerEntry{
			ID:            uuid.NewString(),
			UserID:        userID,
			GoalID:        a.GoalID,
			AmountCents:   a.AmountCents,
			Type:          EntryReserve,
			Source:        SourceSurplus,
			EffectiveDate: period.Start,
			RunID:         runID,
		})
	}
	run := RunRecord{RunID: runID, UserID: userID, Cadence: cadence, PeriodStart: period.Start, Status: RunCompleted, At: now}
	return p.deps.Ledger.Append(ctx, run, entries)
}

// markFunded moves every active goal whose reserved total reached its target
// to funded, whichever entries got it there.
func (p *Planner) markFunded(ctx context.Context, goals []Goal, reserved map[string]money.Cents) ([]string, error) {
	var funded []string
	for i := range goals {
		g := &goals[i]
		if g.Status != StatusActive || g.TargetAmount <= 0 || reserved[g.ID] < g.TargetAmount {
			continue
		}
		if err := p.deps.Goals.UpdateGoalStatus(ctx, g.ID, StatusFunded); err != nil {
			return funded, fmt.Errorf("failed to mark goal funded: %w", err)
		}
		g.Status = StatusFunded
		funded = append(funded, g.ID)
	}
	return funded, nil
}

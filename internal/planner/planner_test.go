package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/payoff-planner/internal/apperrors"
	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

type memStore struct {
	mu       sync.Mutex
	balance  money.Cents
	defs     []recurrence.Definition
	goals    []Goal
	runs     map[string]RunRecord
	entries  []LedgerEntry
	appended int
}

func newMemStore(balance money.Cents, goals ...Goal) *memStore {
	return &memStore{balance: balance, goals: goals, runs: map[string]RunRecord{}}
}

func (m *memStore) AvailableBalance(context.Context, string) (money.Cents, error) {
	return m.balance, nil
}

func (m *memStore) RecurringItems(context.Context, string) ([]recurrence.Definition, error) {
	return m.defs, nil
}

func (m *memStore) ListGoals(context.Context, string) ([]Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Goal(nil), m.goals...), nil
}

func (m *memStore) UpdateGoalStatus(_ context.Context, goalID string, status GoalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.goals {
		if m.goals[i].ID == goalID {
			m.goals[i].Status = status
			return nil
		}
	}
	return ErrGoalNotFound
}

func (m *memStore) ReservedByGoal(context.Context, string) (map[string]money.Cents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]money.Cents{}
	for _, e := range m.entries {
		out[e.GoalID] += e.AmountCents
	}
	return out, nil
}

func (m *memStore) HasRun(_ context.Context, runID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runs[runID]
	return ok, nil
}

func (m *memStore) Append(_ context.Context, run RunRecord, entries []LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.RunID]; ok {
		return ErrRunExists
	}
	m.runs[run.RunID] = run
	m.entries = append(m.entries, entries...)
	m.appended++
	return nil
}

func (m *memStore) LastCompletedRun(context.Context, string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last time.Time
	found := false
	for _, r := range m.runs {
		if r.Status == RunCompleted && (!found || r.At.After(last)) {
			last, found = r.At, true
		}
	}
	return last, found, nil
}

func (m *memStore) goal(id string) Goal {
	for _, g := range m.goals {
		if g.ID == id {
			return g
		}
	}
	return Goal{}
}

type fixedShock struct {
	sig ShockSignal
	err error
}

func (f fixedShock) Check(context.Context, string, time.Time) (ShockSignal, error) {
	return f.sig, f.err
}

func newPlanner(cfg Config, store *memStore, shock ShockProvider) *Planner {
	return New(cfg, Deps{Cashflow: store, Goals: store, Ledger: store, Runs: store, Shock: shock})
}

var monday = date(2025, 1, 6)

func weeklyGoal(id string, target money.Cents) Goal {
	return Goal{ID: id, UserID: "u1", Name: id, Cadence: Weekly, TargetAmount: target, Status: StatusActive}
}

func TestRunCapsAtSurplus(t *testing.T) {
	t.Parallel()

	store := newMemStore(13000, weeklyGoal("bike", 40000))
	p := newPlanner(DefaultConfig(), store, nil)

	res, err := p.Run(context.Background(), Request{UserID: "u1", Cadence: Weekly, Now: monday})
	require.NoError(t, err)

	require.Len(t, res.Allocations, 1)
	a := res.Allocations[0]
	assert.Equal(t, money.Cents(3000), a.AmountCents)
	assert.Equal(t, money.Cents(5000), a.RequiredPerPeriodCents)
	assert.Equal(t, money.Cents(37000), a.RemainingCents)
	assert.Empty(t, res.Funded)
	assert.Equal(t, StatusActive, store.goal("bike").Status)

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, EntryReserve, e.Type)
	assert.Equal(t, SourceSurplus, e.Source)
	assert.Equal(t, RunID("u1", Weekly, monday), e.RunID)
	assert.Equal(t, monday, e.EffectiveDate)
	assert.NotEmpty(t, e.ID)
}

func TestRunIsIdempotentPerPeriod(t *testing.T) {
	t.Parallel()

	store := newMemStore(100000, weeklyGoal("bike", 40000))
	p := newPlanner(DefaultConfig(), store, nil)
	ctx := context.Background()

	first, err := p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday})
	require.NoError(t, err)
	require.Len(t, first.Allocations, 1)

	second, err := p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, second.Allocations)
	assert.Len(t, store.entries, 1)
	assert.Equal(t, 1, store.appended)
}

func TestRunConcurrentTriggersWriteOnce(t *testing.T) {
	t.Parallel()

	store := newMemStore(100000, weeklyGoal("bike", 40000))
	p := newPlanner(DefaultConfig(), store, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reported money.Cents
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Run(context.Background(), Request{UserID: "u1", Cadence: Weekly, Now: monday})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			reported += Total(res.Allocations)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.appended)
	require.Len(t, store.entries, 1)
	assert.Equal(t, store.entries[0].AmountCents, reported, "only the written run reports allocations")
}

func TestRunSurplusBound(t *testing.T) {
	t.Parallel()

	mon := time.Monday
	store := newMemStore(25000,
		weeklyGoal("a", 90000), weeklyGoal("b", 70000), weeklyGoal("c", 50000))
	store.defs = []recurrence.Definition{
		{ID: "pay", Kind: recurrence.Income, Amount: 20000, Cadence: recurrence.Weekly, Weekday: &mon},
		{ID: "rent", Kind: recurrence.Bill, Amount: 12000, Cadence: recurrence.Monthly, DayOfMonth: 8},
	}
	p := newPlanner(DefaultConfig(), store, nil)

	res, err := p.Run(context.Background(), Request{UserID: "u1", Cadence: Weekly, Now: date(2025, 1, 6)})
	require.NoError(t, err)

	// 25000 + 20000 - 12000 - 10000 buffer
	assert.Equal(t, money.Cents(23000), res.Surplus)
	assert.LessOrEqual(t, int64(Total(res.Allocations)), int64(res.Surplus))
	assert.Equal(t, money.Cents(23000), Total(res.Allocations))
}

func TestRunMarksGoalFunded(t *testing.T) {
	t.Parallel()

	g := weeklyGoal("headphones", 6000)
	g.MinContribution = 4000
	store := newMemStore(100000, g)
	p := newPlanner(DefaultConfig(), store, nil)
	ctx := context.Background()

	res, err := p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday})
	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, money.Cents(4000), res.Allocations[0].AmountCents)
	assert.Equal(t, StatusActive, store.goal("headphones").Status)

	res, err = p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday.AddDate(0, 0, 7)})
	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, money.Cents(2000), res.Allocations[0].AmountCents)
	assert.Equal(t, money.Cents(0), res.Allocations[0].RemainingCents)
	assert.Equal(t, []string{"headphones"}, res.Funded)
	assert.Equal(t, StatusFunded, store.goal("headphones").Status)

	res, err = p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday.AddDate(0, 0, 14)})
	require.NoError(t, err)
	assert.Empty(t, res.Allocations)
}

func TestRunDoesNotRespendReservedCash(t *testing.T) {
	t.Parallel()

	store := newMemStore(30000, weeklyGoal("bike", 100000))
	p := newPlanner(DefaultConfig(), store, nil)
	ctx := context.Background()

	preview, err := p.Preview(ctx, "u1", "bike", 2, monday)
	require.NoError(t, err)
	require.Len(t, preview.Periods, 2)

	first, err := p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday})
	require.NoError(t, err)
	second, err := p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday.AddDate(0, 0, 7)})
	require.NoError(t, err)

	require.Len(t, first.Allocations, 1)
	require.Len(t, second.Allocations, 1)
	assert.Equal(t, money.Cents(12500), first.Allocations[0].AmountCents)
	// 30000 - 12500 already held - 10000 buffer
	assert.Equal(t, money.Cents(7500), second.Allocations[0].AmountCents)

	reserved, err := store.ReservedByGoal(ctx, "u1")
	require.NoError(t, err)
	assert.LessOrEqual(t, int64(reserved["bike"]), int64(store.balance-DefaultConfig().SafetyBuffer))
	assert.Equal(t, Total(preview.Periods), reserved["bike"])
}

func TestRunCancelledGoalReleasesCash(t *testing.T) {
	t.Parallel()

	old := weeklyGoal("old", 50000)
	old.Status = StatusCancelled
	store := newMemStore(30000, old, weeklyGoal("bike", 100000))
	store.entries = []LedgerEntry{
		{ID: "e1", GoalID: "old", AmountCents: 20000, Type: EntryReserve},
		{ID: "e2", GoalID: "bike", AmountCents: 5000, Type: EntryReserve},
	}

	res, err := newPlanner(DefaultConfig(), store, nil).Run(context.Background(), Request{UserID: "u1", Cadence: Weekly, Now: monday})
	require.NoError(t, err)

	// only bike's 5000 still holds cash
	assert.Equal(t, money.Cents(15000), res.Surplus)
}

func TestRunSweepsGoalsFundedOutsideRuns(t *testing.T) {
	t.Parallel()

	store := newMemStore(100000, weeklyGoal("bike", 40000), weeklyGoal("trip", 90000))
	store.entries = []LedgerEntry{{ID: "adj", GoalID: "bike", AmountCents: 40000, Type: EntryManualAdjust, Source: "manual"}}
	p := newPlanner(DefaultConfig(), store, nil)

	dry, err := p.Run(context.Background(), Request{UserID: "u1", Cadence: Weekly, DryRun: true, Now: monday})
	require.NoError(t, err)
	assert.Empty(t, dry.Funded)
	assert.Equal(t, StatusActive, store.goal("bike").Status)

	res, err := p.Run(context.Background(), Request{UserID: "u1", Cadence: Weekly, Now: monday})
	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, "trip", res.Allocations[0].GoalID)
	assert.Equal(t, []string{"bike"}, res.Funded)
	assert.Equal(t, StatusFunded, store.goal("bike").Status)
	assert.Equal(t, StatusActive, store.goal("trip").Status)
}

func TestRunUsesUTCDay(t *testing.T) {
	t.Parallel()

	// 22:00 on Sunday in New York is Monday in UTC
	ny := time.FixedZone("EST", -5*60*60)
	store := newMemStore(100000, weeklyGoal("bike", 40000))

	res, err := newPlanner(DefaultConfig(), store, nil).Run(context.Background(),
		Request{UserID: "u1", Cadence: Weekly, Now: monday.Add(3 * time.Hour).In(ny)})
	require.NoError(t, err)
	require.Len(t, res.RunIDs, 1)
	assert.Equal(t, RunID("u1", Weekly, monday), res.RunIDs[0])
	require.Len(t, res.Periods, 1)
	assert.Equal(t, monday, res.Periods[0].Start)
}

func TestRunGates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enabled = false
		store := newMemStore(100000, weeklyGoal("bike", 40000))

		res, err := newPlanner(cfg, store, nil).Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday})
		require.NoError(t, err)
		assert.Empty(t, res.Allocations)
		assert.Equal(t, SkipDisabled, res.Skipped)
		assert.Empty(t, store.runs)
	})

	t.Run("cooldown spans cadences", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Cooldown = 24 * time.Hour
		g := weeklyGoal("bike", 40000)
		pg := weeklyGoal("trip", 40000)
		pg.Cadence = Paycheck
		store := newMemStore(100000, g, pg)
		p := newPlanner(cfg, store, nil)

		_, err := p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday})
		require.NoError(t, err)

		res, err := p.Run(ctx, Request{UserID: "u1", Cadence: Paycheck, Now: monday.Add(2 * time.Hour)})
		require.NoError(t, err)
		assert.Empty(t, res.Allocations)
		assert.Equal(t, SkipCooldown, res.Skipped)

		res, err = p.Run(ctx, Request{UserID: "u1", Cadence: Paycheck, Now: monday.Add(25 * time.Hour)})
		require.NoError(t, err)
		assert.Len(t, res.Allocations, 1)
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		store := newMemStore(100000, weeklyGoal("bike", 8000))

		res, err := newPlanner(DefaultConfig(), store, nil).Run(ctx, Request{UserID: "u1", Cadence: Weekly, DryRun: true, Now: monday})
		require.NoError(t, err)
		require.Len(t, res.Allocations, 1)
		assert.Equal(t, money.Cents(1000), res.Allocations[0].AmountCents)
		assert.Empty(t, store.entries)
		assert.Empty(t, store.runs)
		assert.Empty(t, res.Funded)
	})

	t.Run("no goals records nothing", func(t *testing.T) {
		store := newMemStore(100000)

		res, err := newPlanner(DefaultConfig(), store, nil).Run(ctx, Request{UserID: "u1", Cadence: Both, Now: monday})
		require.NoError(t, err)
		assert.Empty(t, res.Allocations)
		assert.Empty(t, store.runs)
	})
}

func TestRunShock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	triggered := fixedShock{sig: ShockSignal{Triggered: true, Reasons: []string{"spend spike"}}}

	t.Run("apply skips and records attempt", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ShockMode = ShockApply
		store := newMemStore(100000, weeklyGoal("bike", 40000))
		p := newPlanner(cfg, store, triggered)

		res, err := p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday})
		require.NoError(t, err)
		assert.Empty(t, res.Allocations)
		assert.Equal(t, SkipShock, res.Skipped)
		require.NotNil(t, res.ShockPolicy)
		assert.True(t, res.ShockPolicy.Skipped)
		assert.Equal(t, []string{"spend spike"}, res.ShockPolicy.Reasons)

		run, ok := store.runs[RunID("u1", Weekly, monday)]
		require.True(t, ok)
		assert.Equal(t, RunShockSkipped, run.Status)
		assert.Empty(t, store.entries)

		// the period stays skipped once the shock clears
		p = newPlanner(cfg, store, nil)
		res, err = p.Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday.Add(time.Hour)})
		require.NoError(t, err)
		assert.Empty(t, res.Allocations)
	})

	t.Run("apply in dry run records nothing", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ShockMode = ShockApply
		store := newMemStore(100000, weeklyGoal("bike", 40000))

		res, err := newPlanner(cfg, store, triggered).Run(ctx, Request{UserID: "u1", Cadence: Weekly, DryRun: true, Now: monday})
		require.NoError(t, err)
		assert.Empty(t, res.Allocations)
		assert.Empty(t, store.runs)
	})

	t.Run("observe proceeds", func(t *testing.T) {
		store := newMemStore(100000, weeklyGoal("bike", 40000))

		res, err := newPlanner(DefaultConfig(), store, triggered).Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday})
		require.NoError(t, err)
		assert.Len(t, res.Allocations, 1)
		require.NotNil(t, res.ShockPolicy)
		assert.True(t, res.ShockPolicy.Triggered)
		assert.False(t, res.ShockPolicy.Skipped)
	})

	t.Run("provider error is not triggered", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ShockMode = ShockApply
		store := newMemStore(100000, weeklyGoal("bike", 40000))

		res, err := newPlanner(cfg, store, fixedShock{err: errors.New("no data")}).Run(ctx, Request{UserID: "u1", Cadence: Weekly, Now: monday})
		require.NoError(t, err)
		assert.Len(t, res.Allocations, 1)
		assert.Nil(t, res.ShockPolicy)
	})
}

func TestRunBothCadences(t *testing.T) {
	t.Parallel()

	pg := weeklyGoal("trip", 80000)
	pg.Cadence = Paycheck
	store := newMemStore(18000, weeklyGoal("bike", 40000), pg)
	p := newPlanner(DefaultConfig(), store, nil)

	res, err := p.Run(context.Background(), Request{UserID: "u1", Cadence: Both, Now: monday})
	require.NoError(t, err)

	// weekly surplus 8000, bike takes 5000; paycheck then sees 13000 - 10000 buffer
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, "bike", res.Allocations[0].GoalID)
	assert.Equal(t, money.Cents(5000), res.Allocations[0].AmountCents)
	assert.Equal(t, "trip", res.Allocations[1].GoalID)
	assert.Equal(t, money.Cents(3000), res.Allocations[1].AmountCents)
	assert.Len(t, res.RunIDs, 2)
	assert.Len(t, store.runs, 2)
}

func TestRunValidation(t *testing.T) {
	t.Parallel()

	p := newPlanner(DefaultConfig(), newMemStore(0), nil)

	_, err := p.Run(context.Background(), Request{UserID: "u1", Cadence: "monthly"})
	assert.True(t, apperrors.IsConfig(err))

	_, err = p.Run(context.Background(), Request{Cadence: Weekly})
	assert.True(t, apperrors.IsConfig(err))

	_, err = p.Run(context.Background(), Request{UserID: "u1", Cadence: Weekly, HorizonDays: -1})
	assert.True(t, apperrors.IsConfig(err))
}

func TestPreview(t *testing.T) {
	t.Parallel()

	mon := time.Monday
	goal := weeklyGoal("laptop", 20000)
	goal.TargetDate = datePtr(2025, 3, 2)
	store := newMemStore(10000, goal)
	store.defs = []recurrence.Definition{
		{ID: "pay", Kind: recurrence.Income, Amount: 10000, Cadence: recurrence.Weekly, Weekday: &mon, Anchor: monday},
	}
	p := newPlanner(DefaultConfig(), store, nil)
	ctx := context.Background()

	full, err := p.Preview(ctx, "u1", "laptop", 12, monday)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(2500), full.RequiredPerPeriodCents)
	require.NotNil(t, full.FundedBy)
	assert.Equal(t, date(2025, 3, 2), *full.FundedBy)
	assert.Equal(t, money.Cents(0), full.ShortfallCents)
	assert.Len(t, full.Periods, 8)

	short, err := p.Preview(ctx, "u1", "laptop", 4, monday)
	require.NoError(t, err)
	assert.Nil(t, short.FundedBy)
	assert.Equal(t, money.Cents(10000), short.ShortfallCents)
	assert.Len(t, short.Periods, 4)

	assert.Empty(t, store.entries)
	assert.Empty(t, store.runs)

	_, err = p.Preview(ctx, "u1", "missing", 4, monday)
	assert.ErrorIs(t, err, ErrGoalNotFound)

	_, err = p.Preview(ctx, "u1", "laptop", 0, monday)
	assert.True(t, apperrors.IsConfig(err))
}

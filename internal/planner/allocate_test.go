package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func week(start time.Time) Period {
	return PeriodFor(Weekly, start, 14, nil)
}

func TestPeriodsUntilTarget(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	period := week(date(2025, 1, 6))

	cases := []struct {
		name    string
		goal    Goal
		cadence Cadence
		want    int
	}{
		{"no date weekly", Goal{}, Weekly, 8},
		{"no date paycheck", Goal{}, Paycheck, 4},
		{"inside first period", Goal{TargetDate: datePtr(2025, 1, 10)}, Weekly, 1},
		{"last day of period", Goal{TargetDate: datePtr(2025, 1, 12)}, Weekly, 1},
		{"first day of next period", Goal{TargetDate: datePtr(2025, 1, 13)}, Weekly, 2},
		{"eight weeks", Goal{TargetDate: datePtr(2025, 3, 2)}, Weekly, 8},
		{"passed fixed date", Goal{TargetDate: datePtr(2024, 12, 1)}, Weekly, 1},
		{"passed flexible date", Goal{TargetDate: datePtr(2024, 12, 1), FlexibleDate: true}, Weekly, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PeriodsUntilTarget(tc.goal, period, tc.cadence, cfg))
		})
	}
}

func TestRequiredPerPeriod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, money.Cents(0), RequiredPerPeriod(0, 4))
	assert.Equal(t, money.Cents(2500), RequiredPerPeriod(10000, 4))
	assert.Equal(t, money.Cents(3334), RequiredPerPeriod(10000, 3))
	assert.Equal(t, money.Cents(10000), RequiredPerPeriod(10000, 0))
}

func TestCandidatesOrder(t *testing.T) {
	t.Parallel()

	goals := []Goal{
		{ID: "undated", Cadence: Weekly, Priority: 1, TargetAmount: 80000, Status: StatusActive},
		{ID: "late", Cadence: Weekly, Priority: 1, TargetAmount: 10000, TargetDate: datePtr(2025, 6, 1), Status: StatusActive},
		{ID: "soon", Cadence: Weekly, Priority: 1, TargetAmount: 10000, TargetDate: datePtr(2025, 2, 1), Status: StatusActive},
		{ID: "big-undated", Cadence: Weekly, Priority: 1, TargetAmount: 160000, Status: StatusActive},
		{ID: "first", Cadence: Weekly, Priority: 0, TargetAmount: 1000, Status: StatusActive},
		{ID: "paused", Cadence: Weekly, Priority: 0, TargetAmount: 1000, Status: StatusPaused},
		{ID: "paycheck", Cadence: Paycheck, Priority: 0, TargetAmount: 1000, Status: StatusActive},
		{ID: "done", Cadence: Weekly, Priority: 0, TargetAmount: 1000, Status: StatusActive},
	}
	reserved := map[string]money.Cents{"done": 1000}

	cands := Candidates(goals, reserved, Weekly, week(date(2025, 1, 6)), DefaultConfig())

	got := make([]string, 0, len(cands))
	for _, c := range cands {
		got = append(got, c.Goal.ID)
	}
	assert.Equal(t, []string{"first", "soon", "late", "big-undated", "undated"}, got)
}

func TestAllocateCapsBySurplus(t *testing.T) {
	t.Parallel()

	period := week(date(2025, 1, 6))
	goals := []Goal{{ID: "bike", Cadence: Weekly, TargetAmount: 40000, Status: StatusActive}}
	cands := Candidates(goals, nil, Weekly, period, DefaultConfig())
	require.Len(t, cands, 1)
	require.Equal(t, money.Cents(5000), cands[0].Required)

	allocs := Allocate(cands, 3000, period, 0)

	require.Len(t, allocs, 1)
	assert.Equal(t, money.Cents(3000), allocs[0].AmountCents)
	assert.Equal(t, money.Cents(37000), allocs[0].RemainingCents)
	assert.Equal(t, money.Cents(5000), allocs[0].RequiredPerPeriodCents)
	assert.Equal(t, period.Start, allocs[0].PeriodStart)
	assert.Equal(t, period.End, allocs[0].PeriodEnd)
}

func TestAllocateContributionBounds(t *testing.T) {
	t.Parallel()

	period := week(date(2025, 1, 6))
	goals := []Goal{
		{ID: "a", Cadence: Weekly, Priority: 0, TargetAmount: 8000, MinContribution: 3000, Status: StatusActive},
		{ID: "b", Cadence: Weekly, Priority: 1, TargetAmount: 80000, MaxContribution: 2000, Status: StatusActive},
		{ID: "c", Cadence: Weekly, Priority: 2, TargetAmount: 800, MinContribution: 5000, Status: StatusActive},
		{ID: "d", Cadence: Weekly, Priority: 3, TargetAmount: 80000, Status: StatusActive},
	}
	cands := Candidates(goals, nil, Weekly, period, DefaultConfig())

	allocs := Allocate(cands, 10000, period, 0)

	require.Len(t, allocs, 4)
	assert.Equal(t, money.Cents(3000), allocs[0].AmountCents, "min raises required 1000")
	assert.Equal(t, money.Cents(2000), allocs[1].AmountCents, "max caps required 10000")
	assert.Equal(t, money.Cents(800), allocs[2].AmountCents, "capped by remaining need")
	assert.Equal(t, money.Cents(4200), allocs[3].AmountCents, "capped by surplus left")
	assert.Equal(t, money.Cents(10000), Total(allocs))
}

func TestAllocateCeiling(t *testing.T) {
	t.Parallel()

	period := week(date(2025, 1, 6))
	goals := []Goal{
		{ID: "a", Cadence: Weekly, Priority: 0, TargetAmount: 80000, Status: StatusActive},
		{ID: "b", Cadence: Weekly, Priority: 1, TargetAmount: 80000, Status: StatusActive},
	}
	cands := Candidates(goals, nil, Weekly, period, DefaultConfig())

	allocs := Allocate(cands, 100000, period, 15000)

	require.Len(t, allocs, 2)
	assert.Equal(t, money.Cents(10000), allocs[0].AmountCents)
	assert.Equal(t, money.Cents(5000), allocs[1].AmountCents)
}

func TestAllocateSurplusBound(t *testing.T) {
	t.Parallel()

	period := week(date(2025, 1, 6))
	var goals []Goal
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		goals = append(goals, Goal{
			ID: id, Cadence: Weekly, Priority: i % 2, TargetAmount: money.Cents(7000 * (i + 1)),
			MinContribution: 1500, Status: StatusActive,
		})
	}
	cands := Candidates(goals, nil, Weekly, period, DefaultConfig())

	for _, surplus := range []money.Cents{0, 1, 999, 4500, 12345, 1000000} {
		allocs := Allocate(cands, surplus, period, 0)
		assert.LessOrEqual(t, int64(Total(allocs)), int64(surplus))
		for _, a := range allocs {
			assert.Positive(t, int64(a.AmountCents))
		}
	}
}

func TestPeriodFor(t *testing.T) {
	t.Parallel()

	payday := recurrence.Definition{
		ID: "salary", Kind: recurrence.Income, Amount: 200000,
		Cadence: recurrence.Biweekly, Anchor: date(2025, 1, 10),
	}

	weekly := PeriodFor(Weekly, time.Date(2025, 1, 6, 15, 30, 0, 0, time.UTC), 14, nil)
	assert.Equal(t, date(2025, 1, 6), weekly.Start)
	assert.Equal(t, date(2025, 1, 12), weekly.End)
	assert.Equal(t, 7, weekly.Days())

	cycle := PeriodFor(Paycheck, date(2025, 1, 6), 14, []recurrence.Definition{payday})
	assert.Equal(t, date(2025, 1, 9), cycle.End)

	onPayday := PeriodFor(Paycheck, date(2025, 1, 10), 14, []recurrence.Definition{payday})
	assert.Equal(t, date(2025, 1, 23), onPayday.End)

	noIncome := PeriodFor(Paycheck, date(2025, 1, 6), 14, nil)
	assert.Equal(t, date(2025, 1, 19), noIncome.End)

	farIncome := PeriodFor(Paycheck, date(2025, 1, 6), 3, []recurrence.Definition{payday})
	assert.Equal(t, date(2025, 1, 8), farIncome.End)
}

func TestRunIDDeterministic(t *testing.T) {
	t.Parallel()

	start := date(2025, 1, 6)
	assert.Equal(t, RunID("u1", Weekly, start), RunID("u1", Weekly, start))
	assert.NotEqual(t, RunID("u1", Weekly, start), RunID("u1", Paycheck, start))
	assert.NotEqual(t, RunID("u1", Weekly, start), RunID("u1", Weekly, start.AddDate(0, 0, 7)))
	assert.NotEqual(t, RunID("u1", Weekly, start), RunID("u2", Weekly, start))
}

func TestCashflowIn(t *testing.T) {
	t.Parallel()

	monday := time.Monday
	defs := []recurrence.Definition{
		{ID: "pay", Kind: recurrence.Income, Amount: 10000, Cadence: recurrence.Weekly, Weekday: &monday},
		{ID: "rent", Kind: recurrence.Bill, Amount: 4000, Cadence: recurrence.Monthly, DayOfMonth: 10},
		{ID: "tv", Kind: recurrence.Subscription, Amount: 1500, Cadence: recurrence.Monthly, DayOfMonth: 20},
	}

	income, obligations, err := CashflowIn(defs, week(date(2025, 1, 6)))
	require.NoError(t, err)
	assert.Equal(t, money.Cents(10000), income)
	assert.Equal(t, money.Cents(4000), obligations)

	_, _, err = CashflowIn([]recurrence.Definition{{ID: "bad", Kind: "nope", Cadence: recurrence.Weekly}}, week(date(2025, 1, 6)))
	require.Error(t, err)

	assert.Equal(t, money.Cents(0), Surplus(5000, 0, 0, 10000))
	assert.Equal(t, money.Cents(16000), Surplus(20000, 10000, 4000, 10000))
}

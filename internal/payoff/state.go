package payoff

import (
	"fmt"
	"sort"
	"time"

	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

// State is the mutable position threaded through one run's step functions.
// It is created by newState and discarded once the Result is built.
type State struct {
	Date  time.Time
	Cash  money.Cents
	Debts []Debt
	Goals []SavingsGoal

	TotalInterest  money.Cents
	MissedBills    int
	MissedDebtMins int
	DebtFreeDate   *time.Time

	Schedule []ScheduleItem
	Warnings []string

	rules    Rules
	strategy Strategy
	targets  []TargetPayoff

	month          int
	paidThisMonth  map[string]money.Cents
	savedThisMonth money.Cents
	warnedTargets  map[string]bool
}

func newState(in Input) *State {
	st := &State{
		Date:          recurrence.Day(in.StartDate),
		Cash:          in.StartingCash,
		Debts:         append([]Debt(nil), in.Debts...),
		Goals:         append([]SavingsGoal(nil), in.SavingsGoals...),
		rules:         in.Rules,
		strategy:      in.Strategy,
		targets:       append([]TargetPayoff(nil), in.Rules.TargetPayoffDates...),
		month:         -1,
		paidThisMonth: make(map[string]money.Cents),
		warnedTargets: make(map[string]bool),
	}
	sort.SliceStable(st.Goals, func(i, j int) bool {
		if st.Goals[i].Priority != st.Goals[j].Priority {
			return st.Goals[i].Priority < st.Goals[j].Priority
		}
		return st.Goals[i].ID < st.Goals[j].ID
	})
	sort.SliceStable(st.targets, func(i, j int) bool {
		if !st.targets[i].TargetDate.Equal(st.targets[j].TargetDate) {
			return st.targets[i].TargetDate.Before(st.targets[j].TargetDate)
		}
		return st.targets[i].DebtID < st.targets[j].DebtID
	})
	return st
}

// advance moves the state to day, resetting monthly bookkeeping on a new month.
func (st *State) advance(day time.Time) {
	st.Date = day
	if key := day.Year()*12 + int(day.Month()); key != st.month {
		st.month = key
		st.paidThisMonth = make(map[string]money.Cents)
		st.savedThisMonth = 0
	}
}

// available is cash above the buffer, never negative.
func (st *State) available() money.Cents {
	return money.Positive(st.Cash - st.rules.MinBuffer)
}

func (st *State) debtIndex(id string) int {
	for i := range st.Debts {
		if st.Debts[i].ID == id {
			return i
		}
	}
	return -1
}

func (st *State) snapshot() Snapshot {
	snap := Snapshot{
		Cash:    st.Cash,
		Debts:   make([]DebtBalance, len(st.Debts)),
		Savings: make([]SavingsBalance, len(st.Goals)),
	}
	for i, d := range st.Debts {
		snap.Debts[i] = DebtBalance{ID: d.ID, Balance: d.Balance}
	}
	for i, g := range st.Goals {
		snap.Savings[i] = SavingsBalance{ID: g.ID, Current: g.Current}
	}
	return snap
}

func (st *State) emit(typ ItemType, entityID string, amount money.Cents, notes string) {
	st.Schedule = append(st.Schedule, ScheduleItem{
		Date:     st.Date,
		Type:     typ,
		EntityID: entityID,
		Amount:   amount,
		Notes:    notes,
		Snapshot: st.snapshot(),
	})
}

func (st *State) warn(format string, args ...any) {
	st.Warnings = append(st.Warnings, fmt.Sprintf(format, args...))
}

func (st *State) allDebtsPaid() bool {
	for _, d := range st.Debts {
		if d.Balance > 0 {
			return false
		}
	}
	return true
}

func (st *State) result(horizonMonths int) *Result {
	end := st.snapshot()
	return &Result{
		Summary: Summary{
			DebtFreeDate:        st.DebtFreeDate,
			TotalInterest:       st.TotalInterest,
			Months:              horizonMonths,
			MissedBillsCount:    st.MissedBills,
			MissedDebtMinsCount: st.MissedDebtMins,
		},
		Schedule: st.Schedule,
		EndingBalances: EndingBalances{
			Debts:      end.Debts,
			Savings:    end.Savings,
			CashBuffer: end.Cash,
		},
		Warnings: st.Warnings,
	}
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

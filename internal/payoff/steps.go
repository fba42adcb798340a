package payoff

import (
	"github.com/Dan9191/payoff-planner/internal/amortization"
	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

// accrueInterest adds one month of interest to every debt with a balance.
func accrueInterest(st *State) {
	for i := range st.Debts {
		d := &st.Debts[i]
		if d.Balance <= 0 {
			continue
		}
		interest := money.MulDiv(d.Balance, int64(d.APRBps), 120000)
		d.Balance += interest
		st.TotalInterest += interest
		st.emit(ItemNote, d.ID, interest, "interest accrued")
	}
}

func applyIncome(st *State, ev recurrence.Event) {
	st.Cash += ev.Amount
	st.emit(ItemIncome, ev.ID, ev.Amount, ev.Name)
}

// payObligation pays a bill or subscription, or skips it when paying would
// break the buffer. Skips that are not allowed by the rules count as misses.
func payObligation(st *State, ev recurrence.Event) {
	typ, label := ItemBill, "bill"
	skippable := !ev.Essential && st.rules.TreatNonessentialBillsSkippable
	if ev.Kind == recurrence.Subscription {
		typ, label = ItemSubscription, "subscription"
		skippable = !ev.Essential && (st.rules.AllowCancelSubscriptions || ev.Cancelable)
	}

	if ev.Amount == 0 || st.Cash-ev.Amount >= st.rules.MinBuffer {
		st.Cash -= ev.Amount
		st.emit(typ, ev.ID, ev.Amount, ev.Name)
		return
	}

	if skippable {
		st.emit(typ, ev.ID, 0, "skipped: "+label+" is skippable and cash is below buffer")
		return
	}
	st.MissedBills++
	st.warn("Missed %s %q due %s: needed %s, available above buffer %s",
		label, nameOr(ev.Name, ev.ID), formatDate(st.Date), ev.Amount, st.available())
	st.emit(typ, ev.ID, 0, "missed: insufficient cash above buffer")
}

// payDebtMinimum pays a debt's minimum on its due day, partially if that is
// all the buffer allows. Anything short of the minimum is a miss.
func payDebtMinimum(st *State, ev recurrence.Event) {
	i := st.debtIndex(ev.ID)
	if i < 0 {
		return
	}
	d := &st.Debts[i]
	due := money.Min(d.MinimumPayment, d.Balance)
	if due <= 0 {
		return
	}

	paid := money.Min(due, st.available())
	if paid > 0 {
		d.Balance -= paid
		st.Cash -= paid
		st.paidThisMonth[d.ID] += paid
	}

	switch {
	case paid == due:
		st.emit(ItemDebtMin, d.ID, paid, "minimum payment")
	case paid > 0:
		st.MissedDebtMins++
		st.warn("Partial minimum payment on %q due %s: paid %s of %s",
			nameOr(d.Name, d.ID), formatDate(st.Date), paid, due)
		st.emit(ItemDebtMin, d.ID, paid, "partial minimum payment")
	default:
		st.MissedDebtMins++
		st.warn("Missed minimum payment on %q due %s: needed %s",
			nameOr(d.Name, d.ID), formatDate(st.Date), due)
		st.emit(ItemDebtMin, d.ID, 0, "missed minimum payment")
	}
}

// contribute moves up to want into goal g, limited by its remaining
// capacity and by cash above the buffer.
func contribute(st *State, g int, want money.Cents, notes string) money.Cents {
	goal := &st.Goals[g]
	amount := want
	if goal.Target > 0 {
		amount = money.Min(amount, money.Positive(goal.Target-goal.Current))
	}
	amount = money.Min(amount, st.available())
	if amount <= 0 {
		return 0
	}
	st.Cash -= amount
	goal.Current += amount
	st.savedThisMonth += amount
	st.emit(ItemSavings, goal.ID, amount, notes)
	return amount
}

func applyMonthlySavings(st *State) {
	for g := range st.Goals {
		if st.Goals[g].RuleType != FixedMonthly {
			continue
		}
		contribute(st, g, money.FromDecimal(st.Goals[g].RuleValue), "fixed monthly savings")
	}
}

// applyPaycheckSavings runs per-paycheck and percent-of-income rules for one income event.
func applyPaycheckSavings(st *State, income recurrence.Event) {
	for g := range st.Goals {
		switch st.Goals[g].RuleType {
		case FixedPerPaycheck:
			contribute(st, g, money.FromDecimal(st.Goals[g].RuleValue), "per-paycheck savings from "+income.ID)
		case PercentOfIncome:
			contribute(st, g, money.Percent(income.Amount, st.Goals[g].RuleValue), "percent-of-income savings from "+income.ID)
		}
	}
}

// topUpSavingsFloor fills the month's savings shortfall from the single
// highest-priority goal that still has room.
func topUpSavingsFloor(st *State) {
	shortfall := st.rules.SavingsFloorPerMonth - st.savedThisMonth
	if shortfall <= 0 {
		return
	}
	for g, goal := range st.Goals {
		if goal.Target > 0 && goal.Current >= goal.Target {
			continue
		}
		if got := contribute(st, g, shortfall, "savings floor top-up"); got < shortfall {
			st.warn("Savings floor for %s short by %s", st.Date.Format("2006-01"), shortfall-got)
		}
		return
	}
}

func payExtra(st *State, i int, amount money.Cents, notes string) {
	d := &st.Debts[i]
	d.Balance -= amount
	st.Cash -= amount
	st.paidThisMonth[d.ID] += amount
	st.emit(ItemDebtExtra, d.ID, amount, notes)
}

// payTargetDates pays each target-dated debt up to the amortized payment
// its target date requires, nearest target first.
func payTargetDates(st *State) {
	for _, tgt := range st.targets {
		i := st.debtIndex(tgt.DebtID)
		if i < 0 || st.Debts[i].Balance <= 0 {
			continue
		}
		months := recurrence.MonthsBetween(st.Date, tgt.TargetDate) + 1
		if recurrence.Day(tgt.TargetDate).Before(st.Date) && !st.warnedTargets[tgt.DebtID] {
			st.warnedTargets[tgt.DebtID] = true
			st.warn("Target payoff date %s for %q has passed; paying it down as fast as possible",
				formatDate(tgt.TargetDate), nameOr(st.Debts[i].Name, tgt.DebtID))
		}
		if months < 1 {
			months = 1
		}

		d := st.Debts[i]
		required := amortization.RequiredPaymentForTarget(d.Balance, d.APRBps, months)
		shortfall := required - st.paidThisMonth[d.ID]
		amount := money.Min(money.Min(shortfall, st.available()), d.Balance)
		if amount <= 0 {
			continue
		}
		payExtra(st, i, amount, "target payoff by "+formatDate(tgt.TargetDate))
	}
}

// paySurplus spreads cash above the buffer across debts in strategy order.
func paySurplus(st *State) {
	for _, i := range orderDebts(st.Debts, st.strategy, st.rules) {
		avail := st.available()
		if avail <= 0 {
			return
		}
		if amount := money.Min(avail, st.Debts[i].Balance); amount > 0 {
			payExtra(st, i, amount, string(st.strategy)+" extra payment")
		}
	}
}

func monthEnd(st *State) {
	topUpSavingsFloor(st)
	payTargetDates(st)
	paySurplus(st)
}

// monthEndDay is the day surplus is swept: the 28th, or the month's last day
// if the month is shorter.
func monthEndDay(daysInMonth int) int {
	if daysInMonth < 28 {
		return daysInMonth
	}
	return 28
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

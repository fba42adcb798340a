package payoff

import (
	"sort"

	"github.com/shopspring/decimal"
)

const scorePlaces = 6

// orderDebts returns indices of debts with a positive balance in the order
// the strategy pays them.
func orderDebts(debts []Debt, strategy Strategy, rules Rules) []int {
	var idx []int
	for i, d := range debts {
		if d.Balance > 0 {
			idx = append(idx, i)
		}
	}

	var less func(a, b Debt) bool
	switch strategy {
	case Snowball:
		less = snowballLess
	case Hybrid:
		less = hybridLess(debts, idx, rules.HybridWeights)
	case Custom:
		less = customLess(rules.DebtPriorityOrder)
	default:
		less = avalancheLess
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return less(debts[idx[i]], debts[idx[j]])
	})
	return idx
}

// avalancheLess orders by APR descending, then balance descending.
func avalancheLess(a, b Debt) bool {
	if a.APRBps != b.APRBps {
		return a.APRBps > b.APRBps
	}
	if a.Balance != b.Balance {
		return a.Balance > b.Balance
	}
	return a.ID < b.ID
}

// snowballLess orders by balance ascending, then APR descending.
func snowballLess(a, b Debt) bool {
	if a.Balance != b.Balance {
		return a.Balance < b.Balance
	}
	if a.APRBps != b.APRBps {
		return a.APRBps > b.APRBps
	}
	return a.ID < b.ID
}

// NormalizeWeights returns weights summing to 1, defaulting when unset or degenerate.
func NormalizeWeights(w *HybridWeights) HybridWeights {
	if w == nil {
		return DefaultHybridWeights
	}
	apr, bal := w.APR, w.Balance
	if apr < 0 {
		apr = 0
	}
	if bal < 0 {
		bal = 0
	}
	sum := apr + bal
	if sum <= 0 {
		return DefaultHybridWeights
	}
	return HybridWeights{APR: apr / sum, Balance: bal / sum}
}

func hybridLess(debts []Debt, idx []int, weights *HybridWeights) func(a, b Debt) bool {
	w := NormalizeWeights(weights)
	var maxAPR, maxBal int64
	for _, i := range idx {
		if apr := int64(debts[i].APRBps); apr > maxAPR {
			maxAPR = apr
		}
		if bal := int64(debts[i].Balance); bal > maxBal {
			maxBal = bal
		}
	}
	wAPR := decimal.NewFromFloat(w.APR).Round(scorePlaces)
	wBal := decimal.NewFromFloat(w.Balance).Round(scorePlaces)

	scores := make(map[string]decimal.Decimal, len(idx))
	for _, i := range idx {
		d := debts[i]
		score := wAPR.Mul(ratio(int64(d.APRBps), maxAPR)).Add(wBal.Mul(ratio(int64(d.Balance), maxBal)))
		scores[d.ID] = score.Round(scorePlaces)
	}
	return func(a, b Debt) bool {
		if c := scores[a.ID].Cmp(scores[b.ID]); c != 0 {
			return c > 0
		}
		return avalancheLess(a, b)
	}
}

func ratio(v, limit int64) decimal.Decimal {
	if limit <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(v).DivRound(decimal.NewFromInt(limit), scorePlaces)
}

// customLess puts listed debts first in list order; the rest follow by avalanche.
func customLess(order []string) func(a, b Debt) bool {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}
	return func(a, b Debt) bool {
		ra, okA := rank[a.ID]
		rb, okB := rank[b.ID]
		switch {
		case okA && okB:
			return ra < rb
		case okA:
			return true
		case okB:
			return false
		}
		return avalancheLess(a, b)
	}
}

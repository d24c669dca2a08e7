// Package settle computes the minimal set of peer-to-peer transfers that
// clears the group's shared-expense balances.
package settle

import (
	"math"
	"sort"

	"github.com/wayfarer-app/wayfarer/internal/model"
)

// tolerance absorbs rounding noise: balances within one currency unit of
// zero are considered settled.
const tolerance = 1.0

// Total returns the sum of all outstanding (not settled) expense amounts.
func Total(expenses []model.Expense) float64 {
	var total float64
	for _, e := range expenses {
		if e.IsSettled {
			continue
		}
		total += e.Amount
	}
	return total
}

// PaidByPerson returns the outstanding amount paid per person. Every
// participant is present in the map even with zero paid; payers that are not
// current participants still accumulate so totals stay consistent.
func PaidByPerson(expenses []model.Expense, participants []string) map[string]float64 {
	paid := make(map[string]float64, len(participants))
	for _, p := range participants {
		paid[p] = 0
	}
	for _, e := range expenses {
		if e.IsSettled {
			continue
		}
		paid[e.Payer] += e.Amount
	}
	return paid
}

type balance struct {
	name string
	val  float64
}

// Plan computes settle-up transfers with a greedy two-pointer sweep over
// debtors (most negative first) and creditors (most positive first). Each
// transfer is rounded to a whole unit; zero-rounded transfers are omitted
// but the sweep still advances. The result is ordered debtor-major.
func Plan(expenses []model.Expense, participants []string) []model.Transfer {
	total := Total(expenses)
	if total == 0 || len(participants) < 2 {
		return nil
	}

	paid := PaidByPerson(expenses, participants)
	average := total / float64(len(participants))

	var debtors, creditors []balance
	for _, p := range participants {
		v := paid[p] - average
		switch {
		case v < -tolerance:
			debtors = append(debtors, balance{name: p, val: v})
		case v > tolerance:
			creditors = append(creditors, balance{name: p, val: v})
		}
	}
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].val < debtors[j].val })
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].val > creditors[j].val })

	var result []model.Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := math.Round(math.Min(math.Abs(debtor.val), creditor.val))
		if amount > 0 {
			result = append(result, model.Transfer{From: debtor.name, To: creditor.name, Amount: amount})
		}

		debtor.val += amount
		creditor.val -= amount

		if math.Abs(debtor.val) < tolerance {
			i++
		}
		if creditor.val < tolerance {
			j++
		}
	}
	return result
}

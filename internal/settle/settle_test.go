package settle

import (
	"math"
	"testing"

	"github.com/wayfarer-app/wayfarer/internal/model"
)

func TestPlanTwoParticipants(t *testing.T) {
	expenses := []model.Expense{{Item: "Hotel", Amount: 100, Payer: "A"}}
	plan := Plan(expenses, []string{"A", "B"})

	if len(plan) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(plan))
	}
	got := plan[0]
	if got.From != "B" || got.To != "A" || got.Amount != 50 {
		t.Errorf("transfer = %+v, want {B A 50}", got)
	}
}

func TestPlanThreeParticipantsOnePayer(t *testing.T) {
	expenses := []model.Expense{{Item: "Dinner", Amount: 90, Payer: "A"}}
	plan := Plan(expenses, []string{"A", "B", "C"})

	if len(plan) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(plan))
	}
	var sum float64
	for _, tr := range plan {
		if tr.To != "A" {
			t.Errorf("transfer %+v should go to A", tr)
		}
		if tr.Amount != 30 {
			t.Errorf("transfer %+v amount, want 30", tr)
		}
		sum += tr.Amount
	}
	if sum != 60 {
		t.Errorf("total transferred = %v, want 60", sum)
	}
}

func TestPlanAllSettled(t *testing.T) {
	expenses := []model.Expense{
		{Item: "Hotel", Amount: 500, Payer: "A", IsSettled: true},
		{Item: "Taxi", Amount: 120, Payer: "B", IsSettled: true},
	}
	if plan := Plan(expenses, []string{"A", "B"}); len(plan) != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}
}

func TestPlanSettledExcludedFromBalances(t *testing.T) {
	expenses := []model.Expense{
		{Item: "Hotel", Amount: 100, Payer: "A"},
		{Item: "Flights", Amount: 9999, Payer: "B", IsSettled: true},
	}
	plan := Plan(expenses, []string{"A", "B"})
	if len(plan) != 1 || plan[0].From != "B" || plan[0].Amount != 50 {
		t.Errorf("plan = %+v, want single {B A 50}", plan)
	}
}

func TestPlanSingleParticipant(t *testing.T) {
	expenses := []model.Expense{{Item: "Hotel", Amount: 100, Payer: "A"}}
	if plan := Plan(expenses, []string{"A"}); len(plan) != 0 {
		t.Errorf("expected empty plan for single participant, got %+v", plan)
	}
}

func TestPlanNoExpenses(t *testing.T) {
	if plan := Plan(nil, []string{"A", "B"}); len(plan) != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}
}

func TestPlanUnknownPayerCounted(t *testing.T) {
	// A payer removed from the participant list still contributes to the
	// total, so the remaining participants owe their share of it.
	expenses := []model.Expense{{Item: "Tickets", Amount: 60, Payer: "Ghost"}}
	plan := Plan(expenses, []string{"A", "B"})

	// Fair share is 30 each; A and B are both debtors but nobody in the
	// participant list is a creditor, so no transfers can be produced.
	if len(plan) != 0 {
		t.Errorf("plan = %+v, want empty (creditor not a participant)", plan)
	}

	paid := PaidByPerson(expenses, []string{"A", "B"})
	if paid["Ghost"] != 60 {
		t.Errorf("paid[Ghost] = %v, want 60", paid["Ghost"])
	}
	if paid["A"] != 0 || paid["B"] != 0 {
		t.Errorf("participants should be seeded at zero: %v", paid)
	}
}

// Conservation: each debtor's outgoing transfers match their negative
// balance within rounding, and total transferred never exceeds total debt.
func TestPlanConservation(t *testing.T) {
	expenses := []model.Expense{
		{Item: "Hotel", Amount: 4300, Payer: "A"},
		{Item: "BBQ", Amount: 1800, Payer: "B"},
		{Item: "Metro cards", Amount: 600, Payer: "B"},
		{Item: "Museum", Amount: 950, Payer: "C"},
	}
	participants := []string{"A", "B", "C", "D"}
	plan := Plan(expenses, participants)

	paid := PaidByPerson(expenses, participants)
	average := Total(expenses) / float64(len(participants))

	outgoing := make(map[string]float64)
	incoming := make(map[string]float64)
	var transferred float64
	for _, tr := range plan {
		outgoing[tr.From] += tr.Amount
		incoming[tr.To] += tr.Amount
		transferred += tr.Amount
		if tr.Amount <= 0 {
			t.Errorf("non-positive transfer %+v", tr)
		}
	}

	var totalDebt float64
	for _, p := range participants {
		bal := paid[p] - average
		if bal < -tolerance {
			totalDebt += -bal
			if diff := math.Abs(outgoing[p] - (-bal)); diff > tolerance {
				t.Errorf("debtor %s pays %v, balance %v", p, outgoing[p], -bal)
			}
		}
		if bal > tolerance {
			if diff := math.Abs(incoming[p] - bal); diff > tolerance*2 {
				t.Errorf("creditor %s receives %v, balance %v", p, incoming[p], bal)
			}
		}
	}
	if transferred > totalDebt+tolerance*float64(len(participants)) {
		t.Errorf("transferred %v exceeds total debt %v", transferred, totalDebt)
	}
}

func TestPlanOrderIsDebtorMajor(t *testing.T) {
	expenses := []model.Expense{{Item: "Villa", Amount: 400, Payer: "A"}}
	plan := Plan(expenses, []string{"A", "B", "C", "D"})

	if len(plan) != 3 {
		t.Fatalf("expected 3 transfers, got %d", len(plan))
	}
	// All debtors owe the same amount, so sweep order follows participant
	// order within the stable sort.
	wantFrom := []string{"B", "C", "D"}
	for i, tr := range plan {
		if tr.From != wantFrom[i] {
			t.Errorf("plan[%d].From = %s, want %s", i, tr.From, wantFrom[i])
		}
	}
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wayfarer-app/wayfarer/internal/model"
	"github.com/wayfarer-app/wayfarer/internal/settle"
	"github.com/wayfarer-app/wayfarer/internal/trip"
)

type ExpenseHandler struct {
	planner *trip.Planner
	logger  *slog.Logger
}

func NewExpenseHandler(p *trip.Planner, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{planner: p, logger: logger}
}

type expenseRequest struct {
	Item   string  `json:"item"`
	Amount float64 `json:"amount"`
	Payer  string  `json:"payer"`
}

// Add handles POST /api/expenses
func (h *ExpenseHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if err := h.planner.AddExpense(req.Item, req.Amount, req.Payer); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Remove handles DELETE /api/expenses/{idx}
func (h *ExpenseHandler) Remove(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndexParam(r, "idx")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	if err := h.planner.RemoveExpense(idx); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleSettled handles POST /api/expenses/{idx}/toggle
func (h *ExpenseHandler) ToggleSettled(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndexParam(r, "idx")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	if err := h.planner.ToggleExpenseSettled(idx); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// summaryResponse is the expense split view: the unsettled total, how much
// each participant paid, the equal share, and the transfer plan.
type summaryResponse struct {
	Total     float64            `json:"total"`
	Share     float64            `json:"share"`
	Paid      map[string]float64 `json:"paid"`
	Transfers []model.Transfer   `json:"transfers"`
	Rate      float64            `json:"rate"`
}

// Summary handles GET /api/expenses/summary
func (h *ExpenseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	state, ok := h.planner.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no current trip")
		return
	}

	total := settle.Total(state.Expenses)
	paid := settle.PaidByPerson(state.Expenses, state.Participants)
	transfers := settle.Plan(state.Expenses, state.Participants)
	if transfers == nil {
		transfers = []model.Transfer{}
	}

	var share float64
	if len(state.Participants) > 0 {
		share = total / float64(len(state.Participants))
	}

	// The grid shows participants only; an unknown payer still counts in
	// the total but never appears as a row.
	grid := make(map[string]float64, len(state.Participants))
	for _, name := range state.Participants {
		grid[name] = paid[name]
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Total:     total,
		Share:     share,
		Paid:      grid,
		Transfers: transfers,
		Rate:      state.Rate,
	})
}

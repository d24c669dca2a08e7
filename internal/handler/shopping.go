package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wayfarer-app/wayfarer/internal/trip"
)

type ShoppingHandler struct {
	planner *trip.Planner
	logger  *slog.Logger
}

func NewShoppingHandler(p *trip.Planner, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{planner: p, logger: logger}
}

type shoppingItemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Owner    string `json:"owner"`
}

// Add handles POST /api/shopping. Items without a category are
// auto-categorized by name.
func (h *ShoppingHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req shoppingItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := h.planner.AddShoppingItem(req.Name, req.Category, req.Owner)
	if err != nil {
		writePlannerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Toggle handles POST /api/shopping/{id}/toggle
func (h *ShoppingHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.ToggleShoppingItem(r.PathValue("id")); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /api/shopping/{id}
func (h *ShoppingHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.RemoveShoppingItem(r.PathValue("id")); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name string `json:"name"`
}

// AddCategory handles POST /api/shopping/categories
func (h *ShoppingHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.planner.AddCategory(req.Name); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wayfarer-app/wayfarer/internal/model"
	"github.com/wayfarer-app/wayfarer/internal/trip"
)

type TripHandler struct {
	planner *trip.Planner
	logger  *slog.Logger
}

func NewTripHandler(p *trip.Planner, logger *slog.Logger) *TripHandler {
	return &TripHandler{planner: p, logger: logger}
}

// stateResponse is the full current-trip view the UI renders from.
type stateResponse struct {
	Meta            model.TripMeta       `json:"meta"`
	Setup           model.SetupConfig    `json:"setup"`
	Days            []model.DayPlan      `json:"days"`
	Expenses        []model.Expense      `json:"expenses"`
	Shopping        []model.ShoppingItem `json:"shopping"`
	Categories      []string             `json:"shoppingCategories"`
	Participants    []string             `json:"participants"`
	ParticipantsRaw string               `json:"participantsRaw"`
	Rate            float64              `json:"rate"`
}

func stateToResponse(s trip.State) stateResponse {
	resp := stateResponse{
		Meta:            s.Meta,
		Setup:           s.Setup,
		Days:            s.Days,
		Expenses:        s.Expenses,
		Shopping:        s.Shopping,
		Categories:      s.Categories,
		Participants:    s.Participants,
		ParticipantsRaw: s.ParticipantsRaw,
		Rate:            s.Rate,
	}
	if resp.Days == nil {
		resp.Days = []model.DayPlan{}
	}
	if resp.Expenses == nil {
		resp.Expenses = []model.Expense{}
	}
	if resp.Shopping == nil {
		resp.Shopping = []model.ShoppingItem{}
	}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	if resp.Participants == nil {
		resp.Participants = []string{}
	}
	return resp
}

// List handles GET /api/trips
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	trips, err := h.planner.List()
	if err != nil {
		h.logger.Error("list trips", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list trips")
		return
	}
	if trips == nil {
		trips = []model.TripMeta{}
	}
	writeJSON(w, http.StatusOK, trips)
}

// Create handles POST /api/trips
func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.SetupConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	meta, err := h.planner.Create(req)
	if err != nil {
		writePlannerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// Current handles GET /api/trips/current
func (h *TripHandler) Current(w http.ResponseWriter, r *http.Request) {
	state, ok := h.planner.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no current trip")
		return
	}
	writeJSON(w, http.StatusOK, stateToResponse(state))
}

// Switch handles POST /api/trips/{id}/switch
func (h *TripHandler) Switch(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.Switch(r.PathValue("id")); err != nil {
		writePlannerError(w, err)
		return
	}
	state, _ := h.planner.Current()
	writeJSON(w, http.StatusOK, stateToResponse(state))
}

// Delete handles DELETE /api/trips/{id}
func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.Delete(r.PathValue("id")); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dayRequest struct {
	Date  *string `json:"date"`
	Title *string `json:"title"`
}

// UpdateDay handles PATCH /api/days/{day}
func (h *TripHandler) UpdateDay(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndexParam(r, "day")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day index")
		return
	}

	var req dayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Date != nil {
		if err := h.planner.SetDayDate(idx, *req.Date); err != nil {
			writePlannerError(w, err)
			return
		}
	}
	if req.Title != nil {
		if err := h.planner.SetDayTitle(idx, *req.Title); err != nil {
			writePlannerError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddDay handles POST /api/days
func (h *TripHandler) AddDay(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.AddDay(); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// AddItem handles POST /api/days/{day}/items
func (h *TripHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndexParam(r, "day")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day index")
		return
	}
	if err := h.planner.AddItem(idx); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// UpdateItem handles PUT /api/days/{day}/items/{item}
func (h *TripHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	dayIdx, err := parseIndexParam(r, "day")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day index")
		return
	}
	itemIdx, err := parseIndexParam(r, "item")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item index")
		return
	}

	var req model.TripItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.planner.UpdateItem(dayIdx, itemIdx, req); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveItem handles DELETE /api/days/{day}/items/{item}
func (h *TripHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	dayIdx, err := parseIndexParam(r, "day")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day index")
		return
	}
	itemIdx, err := parseIndexParam(r, "item")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item index")
		return
	}
	if err := h.planner.RemoveItem(dayIdx, itemIdx); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFlight handles PUT /api/days/{day}/flight. A null body removes the flight.
func (h *TripHandler) SetFlight(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndexParam(r, "day")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day index")
		return
	}

	var req *model.FlightInfo
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.planner.SetFlight(idx, req); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type participantsRequest struct {
	Participants string `json:"participants"`
}

// SetParticipants handles PUT /api/participants
func (h *TripHandler) SetParticipants(w http.ResponseWriter, r *http.Request) {
	var req participantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Participants) == "" {
		writeError(w, http.StatusBadRequest, "participants is required")
		return
	}
	if err := h.planner.SetParticipants(req.Participants); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rateRequest struct {
	Rate float64 `json:"rate"`
}

// SetRate handles PUT /api/rate
func (h *TripHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Rate <= 0 {
		writeError(w, http.StatusBadRequest, "rate must be positive")
		return
	}
	if err := h.planner.SetRate(req.Rate); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSetup handles PUT /api/setup
func (h *TripHandler) SetSetup(w http.ResponseWriter, r *http.Request) {
	var req model.SetupConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.planner.SetSetup(req); err != nil {
		writePlannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

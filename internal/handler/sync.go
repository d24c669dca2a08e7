package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wayfarer-app/wayfarer/internal/store"
	appsync "github.com/wayfarer-app/wayfarer/internal/sync"
	"github.com/wayfarer-app/wayfarer/internal/trip"
)

type SyncHandler struct {
	session  *appsync.Session
	planner  *trip.Planner
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSyncHandler(session *appsync.Session, planner *trip.Planner, settings *store.SettingsStore, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{session: session, planner: planner, settings: settings, logger: logger}
}

type syncStatusResponse struct {
	Status  appsync.Status `json:"status"`
	ActorID string         `json:"actorId,omitempty"`
}

// Status handles GET /api/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, syncStatusResponse{
		Status:  h.session.Status(),
		ActorID: h.session.ActorID(),
	})
}

type connectRequest struct {
	Config      string `json:"config"`
	AutoConnect bool   `json:"autoConnect"`
}

// Connect handles POST /api/sync/connect. The config body must be strict
// JSON; anything else is rejected rather than evaluated.
func (h *SyncHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Config) == "" {
		writeError(w, http.StatusBadRequest, "config is required")
		return
	}

	if err := h.session.ConnectRaw(r.Context(), req.Config); err != nil {
		h.logger.Warn("sync connect failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	// Persist so the next start can reconnect without re-entry.
	if err := h.settings.Set("sync_config", req.Config); err != nil {
		h.logger.Error("save sync config", "error", err)
	}
	auto := "false"
	if req.AutoConnect {
		auto = "true"
	}
	if err := h.settings.Set("sync_auto_connect", auto); err != nil {
		h.logger.Error("save sync auto connect", "error", err)
	}

	writeJSON(w, http.StatusOK, syncStatusResponse{
		Status:  h.session.Status(),
		ActorID: h.session.ActorID(),
	})
}

// Disconnect handles POST /api/sync/disconnect
func (h *SyncHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.session.Disconnect()
	writeJSON(w, http.StatusOK, syncStatusResponse{Status: h.session.Status()})
}

type joinRequest struct {
	TripID string `json:"tripId"`
}

// Join handles POST /api/sync/join
func (h *SyncHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.TripID = strings.TrimSpace(req.TripID)
	if req.TripID == "" {
		writeError(w, http.StatusBadRequest, "tripId is required")
		return
	}

	err := h.session.Join(r.Context(), req.TripID)
	switch {
	case errors.Is(err, appsync.ErrNotConnected):
		writeError(w, http.StatusConflict, "connect to a remote store before joining")
	case errors.Is(err, appsync.ErrTripNotFound):
		writeError(w, http.StatusNotFound, "shared trip not found")
	case err != nil:
		h.logger.Warn("sync join failed", "trip", req.TripID, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		state, _ := h.planner.Current()
		writeJSON(w, http.StatusOK, stateToResponse(state))
	}
}

type shareResponse struct {
	TripID  string `json:"tripId"`
	JoinURL string `json:"joinUrl"`
}

// Share handles GET /api/sync/share. The join URL is a deep link any
// connected device can open to adopt the current trip.
func (h *SyncHandler) Share(w http.ResponseWriter, r *http.Request) {
	id := h.planner.CurrentID()
	if id == "" {
		writeError(w, http.StatusNotFound, "no current trip")
		return
	}
	if h.session.Status() != appsync.StatusSynced {
		writeError(w, http.StatusConflict, "connect to a remote store before sharing")
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{
		TripID:  id,
		JoinURL: "/?tripId=" + id,
	})
}

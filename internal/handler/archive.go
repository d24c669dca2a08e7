package handler

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wayfarer-app/wayfarer/internal/archive"
	"github.com/wayfarer-app/wayfarer/internal/model"
	"github.com/wayfarer-app/wayfarer/internal/store"
)

type ArchiveHandler struct {
	manager      *archive.Manager
	archiveStore *store.ArchiveStore
	settings     *store.SettingsStore
	logger       *slog.Logger
}

func NewArchiveHandler(m *archive.Manager, as *store.ArchiveStore, ss *store.SettingsStore, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{manager: m, archiveStore: as, settings: ss, logger: logger}
}

// Status handles GET /api/archives/status
func (h *ArchiveHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// List handles GET /api/archives
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	archives, err := h.archiveStore.List()
	if err != nil {
		h.logger.Error("list archives", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}
	if archives == nil {
		archives = []model.Archive{}
	}
	writeJSON(w, http.StatusOK, archives)
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

// Run handles POST /api/archives/run
func (h *ArchiveHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	id, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		h.logger.Error("run archive", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// Restore handles POST /api/archives/{id}/restore. On success the process
// exits so it restarts on the restored database.
func (h *ArchiveHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req passphraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	if err := h.manager.Restore(r.Context(), id, req.Passphrase); err != nil {
		h.logger.Error("restore archive", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
}

// Download handles GET /api/archives/{id}/download
func (h *ArchiveHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download archive", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=archive-%d.db.enc", id))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	io.Copy(w, body)
}

type archiveSettingsRequest struct {
	Enabled       *bool   `json:"enabled"`
	ScheduleHour  *int    `json:"scheduleHour"`
	RetentionDays *int    `json:"retentionDays"`
	Passphrase    *string `json:"passphrase"`
}

// UpdateSettings handles PUT /api/archives/settings. Setting a passphrase
// generates a fresh salt and caches the derived credentials for the
// scheduled loop.
func (h *ArchiveHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req archiveSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Enabled != nil {
		v := "false"
		if *req.Enabled {
			v = "true"
		}
		if err := h.settings.Set("archive_enabled", v); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}
	if req.ScheduleHour != nil {
		if *req.ScheduleHour < 0 || *req.ScheduleHour > 23 {
			writeError(w, http.StatusBadRequest, "scheduleHour must be 0-23")
			return
		}
		if err := h.settings.Set("archive_schedule_hour", strconv.Itoa(*req.ScheduleHour)); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}
	if req.RetentionDays != nil {
		if *req.RetentionDays <= 0 {
			writeError(w, http.StatusBadRequest, "retentionDays must be positive")
			return
		}
		if err := h.settings.Set("archive_retention_days", strconv.Itoa(*req.RetentionDays)); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}
	if req.Passphrase != nil && *req.Passphrase != "" {
		salt, err := archive.GenerateSalt()
		if err != nil {
			h.logger.Error("generate archive salt", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to set passphrase")
			return
		}
		if err := h.settings.Set("archive_passphrase_salt", hex.EncodeToString(salt)); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		h.manager.CacheKey(*req.Passphrase, salt)
	}

	w.WriteHeader(http.StatusNoContent)
}

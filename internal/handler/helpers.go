package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wayfarer-app/wayfarer/internal/trip"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIndexParam(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.PathValue(name))
}

// writePlannerError maps planner errors to HTTP statuses.
func writePlannerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trip.ErrNoCurrentTrip):
		writeError(w, http.StatusConflict, "no current trip")
	case errors.Is(err, trip.ErrTripNotFound):
		writeError(w, http.StatusNotFound, "trip not found")
	case errors.Is(err, trip.ErrIndexRange):
		writeError(w, http.StatusNotFound, "index out of range")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/wayfarer-app/wayfarer/internal/geo"
	"github.com/wayfarer-app/wayfarer/internal/rate"
	"github.com/wayfarer-app/wayfarer/internal/trip"
	"github.com/wayfarer-app/wayfarer/internal/weather"
)

// LookupHandler proxies the external lookup services so devices on the LAN
// never talk to the upstream APIs directly.
type LookupHandler struct {
	geo     *geo.Service
	weather *weather.Service
	rates   *rate.Service
	planner *trip.Planner
	logger  *slog.Logger
}

func NewLookupHandler(g *geo.Service, ws *weather.Service, rs *rate.Service, p *trip.Planner, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{geo: g, weather: ws, rates: rs, planner: p, logger: logger}
}

// GeoSearch handles GET /api/lookup/geo?q=...
func (h *LookupHandler) GeoSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 10 {
		limit = 5
	}

	places, err := h.geo.Search(r.Context(), q, limit)
	if err != nil {
		h.logger.Warn("geo search failed", "query", q, "error", err)
		writeError(w, http.StatusBadGateway, "geocoding unavailable")
		return
	}
	writeJSON(w, http.StatusOK, places)
}

// GeoNearby handles GET /api/lookup/nearby?kind=restaurant&near=...
func (h *LookupHandler) GeoNearby(w http.ResponseWriter, r *http.Request) {
	kind := strings.TrimSpace(r.URL.Query().Get("kind"))
	near := strings.TrimSpace(r.URL.Query().Get("near"))
	if kind == "" || near == "" {
		writeError(w, http.StatusBadRequest, "kind and near are required")
		return
	}

	places, err := h.geo.Nearby(r.Context(), kind, near)
	if err != nil {
		h.logger.Warn("nearby lookup failed", "kind", kind, "near", near, "error", err)
		writeError(w, http.StatusBadGateway, "geocoding unavailable")
		return
	}
	writeJSON(w, http.StatusOK, places)
}

// Weather handles GET /api/lookup/weather. Without a destination query it
// uses the current trip's destination.
func (h *LookupHandler) Weather(w http.ResponseWriter, r *http.Request) {
	dest := strings.TrimSpace(r.URL.Query().Get("destination"))
	if dest == "" {
		state, ok := h.planner.Current()
		if !ok {
			writeError(w, http.StatusNotFound, "no current trip")
			return
		}
		dest = state.Setup.Destination
	}
	if dest == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}

	forecast, err := h.weather.GetForecast(r.Context(), dest)
	if err != nil {
		h.logger.Warn("weather lookup failed", "destination", dest, "error", err)
		writeError(w, http.StatusBadGateway, "forecast unavailable")
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

type rateResponse struct {
	Currency string  `json:"currency"`
	Home     string  `json:"home"`
	Rate     float64 `json:"rate"`
}

// Rate handles GET /api/lookup/rate?currency=KRW
func (h *LookupHandler) Rate(w http.ResponseWriter, r *http.Request) {
	currency := strings.TrimSpace(r.URL.Query().Get("currency"))
	if currency == "" {
		writeError(w, http.StatusBadRequest, "currency is required")
		return
	}

	value, err := h.rates.Lookup(r.Context(), currency)
	if err != nil {
		h.logger.Warn("rate lookup failed", "currency", currency, "error", err)
		writeError(w, http.StatusBadGateway, "exchange rate unavailable")
		return
	}
	writeJSON(w, http.StatusOK, rateResponse{
		Currency: strings.ToUpper(currency),
		Home:     h.rates.HomeCurrency(),
		Rate:     value,
	})
}

// CountryInfo handles GET /api/lookup/country?code=jp. Used to prefill
// currency and phrasebook language when a trip destination resolves to a
// known country.
func (h *LookupHandler) CountryInfo(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	writeJSON(w, http.StatusOK, rate.InfoForCountry(code))
}

// Package geo resolves place names through the OpenStreetMap Nominatim
// API. It backs both the map link on itinerary items and the nearby
// suggestions panel.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"
	requestTimeout = 10 * time.Second

	// Nominatim usage policy requires an identifying User-Agent.
	userAgent = "wayfarer/1.0 (trip planner; +https://github.com/wayfarer-app/wayfarer)"

	nearbyLimit = 4
)

// Place is one geocoding result.
type Place struct {
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	CountryCode string  `json:"countryCode,omitempty"`
}

type apiResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// Service queries Nominatim.
type Service struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// Search geocodes a free-text place name and returns the best matches.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 1
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))
	return s.search(ctx, params)
}

// Nearby suggests places of a given kind around a named location, e.g.
// restaurants near a hotel. Nominatim handles the "X near Y" phrasing
// natively.
func (s *Service) Nearby(ctx context.Context, kind, near string) ([]Place, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%s near %s", kind, near))
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(nearbyLimit))
	return s.search(ctx, params)
}

func (s *Service) search(ctx context.Context, params url.Values) ([]Place, error) {
	reqURL := s.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request: status %d", resp.StatusCode)
	}

	var results []apiResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	places := make([]Place, 0, len(results))
	for _, r := range results {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		places = append(places, Place{
			Name:        r.DisplayName,
			Lat:         lat,
			Lon:         lon,
			CountryCode: r.Address.CountryCode,
		})
	}
	return places, nil
}

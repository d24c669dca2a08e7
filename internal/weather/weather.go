// Package weather fetches forecasts for a trip destination from the
// Open-Meteo API. Destinations are geocoded by name first; results are
// cached per destination so itinerary browsing does not hammer the API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	cacheTTL = 30 * time.Minute

	// Open-Meteo caps the daily forecast horizon at 16 days, which also
	// bounds how far ahead an itinerary day can show weather.
	ForecastDays = 16
)

// DayForecast is one day of the forecast window.
type DayForecast struct {
	Date string  `json:"date"`
	High float64 `json:"high"`
	Low  float64 `json:"low"`
	Code int     `json:"code"`
	Desc string  `json:"desc"`
	Icon string  `json:"icon"`
}

// Forecast holds current conditions plus the daily window for one
// destination. Temperatures are celsius.
type Forecast struct {
	Destination string        `json:"destination"`
	CurrentTemp float64       `json:"currentTemp"`
	CurrentCode int           `json:"currentCode"`
	CurrentDesc string        `json:"currentDesc"`
	CurrentIcon string        `json:"currentIcon"`
	Daily       []DayForecast `json:"daily"`
}

// ForDate returns the forecast day matching an ISO date, if it falls
// inside the window.
func (f *Forecast) ForDate(isoDate string) (DayForecast, bool) {
	for _, d := range f.Daily {
		if d.Date == isoDate {
			return d, true
		}
	}
	return DayForecast{}, false
}

type cacheEntry struct {
	forecast  *Forecast
	fetchedAt time.Time
}

// Service manages forecast fetching and per-destination caching.
type Service struct {
	client     *http.Client
	geocodeURL string
	forecastURL string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewService() *Service {
	return &Service{
		client:      &http.Client{Timeout: 10 * time.Second},
		geocodeURL:  "https://geocoding-api.open-meteo.com/v1/search",
		forecastURL: "https://api.open-meteo.com/v1/forecast",
		cache:       make(map[string]cacheEntry),
	}
}

// GetForecast returns the forecast for a destination, fetching from the
// API if the cached copy is stale. On fetch failure a stale copy is
// returned rather than nothing.
func (s *Service) GetForecast(ctx context.Context, destination string) (*Forecast, error) {
	s.mu.Lock()
	entry, ok := s.cache[destination]
	s.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < cacheTTL {
		return entry.forecast, nil
	}

	forecast, err := s.fetch(ctx, destination)
	if err != nil {
		if ok {
			return entry.forecast, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.cache[destination] = cacheEntry{forecast: forecast, fetchedAt: time.Now()}
	s.mu.Unlock()
	return forecast, nil
}

type geocodeResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Time        []string  `json:"time"`
		TempMax     []float64 `json:"temperature_2m_max"`
		TempMin     []float64 `json:"temperature_2m_min"`
		WeatherCode []int     `json:"weather_code"`
	} `json:"daily"`
}

func (s *Service) fetch(ctx context.Context, destination string) (*Forecast, error) {
	lat, lon, err := s.geocode(ctx, destination)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf(
		"%s?latitude=%.4f&longitude=%.4f&current=temperature_2m,weather_code&daily=temperature_2m_max,temperature_2m_min,weather_code&timezone=auto&forecast_days=%d",
		s.forecastURL, lat, lon, ForecastDays,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create forecast request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast API returned status %d", resp.StatusCode)
	}

	var apiResp forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}

	desc, icon := WMOCodeToDescIcon(apiResp.Current.WeatherCode)
	forecast := &Forecast{
		Destination: destination,
		CurrentTemp: apiResp.Current.Temperature,
		CurrentCode: apiResp.Current.WeatherCode,
		CurrentDesc: desc,
		CurrentIcon: icon,
	}

	for i, date := range apiResp.Daily.Time {
		if i >= len(apiResp.Daily.TempMax) || i >= len(apiResp.Daily.TempMin) || i >= len(apiResp.Daily.WeatherCode) {
			break
		}
		dayDesc, dayIcon := WMOCodeToDescIcon(apiResp.Daily.WeatherCode[i])
		forecast.Daily = append(forecast.Daily, DayForecast{
			Date: date,
			High: apiResp.Daily.TempMax[i],
			Low:  apiResp.Daily.TempMin[i],
			Code: apiResp.Daily.WeatherCode[i],
			Desc: dayDesc,
			Icon: dayIcon,
		})
	}

	return forecast, nil
}

func (s *Service) geocode(ctx context.Context, destination string) (float64, float64, error) {
	reqURL := s.geocodeURL + "?" + url.Values{
		"name":  {destination},
		"count": {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create geocode request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocode API returned status %d", resp.StatusCode)
	}

	var apiResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return 0, 0, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(apiResp.Results) == 0 {
		return 0, 0, fmt.Errorf("no location found for %q", destination)
	}
	return apiResp.Results[0].Latitude, apiResp.Results[0].Longitude, nil
}

// WMOCodeToDescIcon maps a WMO weather code to a human-readable description and emoji icon.
func WMOCodeToDescIcon(code int) (string, string) {
	switch code {
	case 0:
		return "Clear sky", "☀️"
	case 1:
		return "Mainly clear", "🌤️"
	case 2:
		return "Partly cloudy", "⛅"
	case 3:
		return "Overcast", "☁️"
	case 45, 48:
		return "Foggy", "🌫️"
	case 51:
		return "Light drizzle", "🌦️"
	case 53:
		return "Moderate drizzle", "🌦️"
	case 55:
		return "Dense drizzle", "🌧️"
	case 56, 57:
		return "Freezing drizzle", "🌧️"
	case 61:
		return "Slight rain", "🌦️"
	case 63:
		return "Moderate rain", "🌧️"
	case 65:
		return "Heavy rain", "🌧️"
	case 66, 67:
		return "Freezing rain", "🌧️"
	case 71:
		return "Slight snow", "🌨️"
	case 73:
		return "Moderate snow", "🌨️"
	case 75:
		return "Heavy snow", "❄️"
	case 77:
		return "Snow grains", "❄️"
	case 80:
		return "Slight showers", "🌦️"
	case 81:
		return "Moderate showers", "🌧️"
	case 82:
		return "Violent showers", "⛈️"
	case 85:
		return "Slight snow showers", "🌨️"
	case 86:
		return "Heavy snow showers", "❄️"
	case 95:
		return "Thunderstorm", "⛈️"
	case 96, 99:
		return "Thunderstorm with hail", "⛈️"
	default:
		return "Unknown", "🌡️"
	}
}

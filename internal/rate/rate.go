// Package rate looks up exchange rates between a trip's local currency and
// the home currency, and carries the small country knowledge base used to
// prefill new-trip defaults.
package rate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultHomeCurrency is used when no home currency is configured.
	DefaultHomeCurrency = "TWD"

	cacheTTL = time.Hour
)

// CountryInfo describes currency and language defaults for a country.
type CountryInfo struct {
	Currency string `json:"currency"`
	Language string `json:"language"`
	LangName string `json:"langName"`
}

// countryInfo keys are ISO 3166-1 alpha-2 codes, lowercase.
var countryInfo = map[string]CountryInfo{
	"jp": {Currency: "JPY", Language: "ja", LangName: "Japanese"},
	"kr": {Currency: "KRW", Language: "ko", LangName: "Korean"},
	"us": {Currency: "USD", Language: "en", LangName: "English"},
	"cn": {Currency: "CNY", Language: "zh", LangName: "Chinese"},
	"th": {Currency: "THB", Language: "th", LangName: "Thai"},
}

var fallbackInfo = CountryInfo{Currency: "USD", Language: "en", LangName: "English"}

// InfoForCountry returns currency and language defaults for a country code.
// Unknown countries get the USD/English fallback.
func InfoForCountry(code string) CountryInfo {
	if info, ok := countryInfo[strings.ToLower(code)]; ok {
		return info
	}
	return fallbackInfo
}

type cacheEntry struct {
	rate      float64
	fetchedAt time.Time
}

// Service fetches exchange rates with a short cache per currency pair.
type Service struct {
	client       *http.Client
	baseURL      string
	homeCurrency string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewService(homeCurrency string) *Service {
	if homeCurrency == "" {
		homeCurrency = DefaultHomeCurrency
	}
	return &Service{
		client:       &http.Client{Timeout: 10 * time.Second},
		baseURL:      "https://api.exchangerate-api.com/v4/latest",
		homeCurrency: strings.ToUpper(homeCurrency),
		cache:        make(map[string]cacheEntry),
	}
}

// HomeCurrency returns the configured home currency code.
func (s *Service) HomeCurrency() string {
	return s.homeCurrency
}

type apiResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Lookup returns how much one unit of the trip currency is worth in the
// home currency. The identical pair is always 1 without a network call.
func (s *Service) Lookup(ctx context.Context, tripCurrency string) (float64, error) {
	tripCurrency = strings.ToUpper(strings.TrimSpace(tripCurrency))
	if tripCurrency == "" {
		return 0, fmt.Errorf("trip currency is required")
	}
	if tripCurrency == s.homeCurrency {
		return 1, nil
	}

	s.mu.Lock()
	entry, ok := s.cache[tripCurrency]
	s.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < cacheTTL {
		return entry.rate, nil
	}

	reqURL := fmt.Sprintf("%s/%s", s.baseURL, tripCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create rate request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}

	rate, ok := apiResp.Rates[s.homeCurrency]
	if !ok {
		return 0, fmt.Errorf("no rate from %s to %s", tripCurrency, s.homeCurrency)
	}

	s.mu.Lock()
	s.cache[tripCurrency] = cacheEntry{rate: rate, fetchedAt: time.Now()}
	s.mu.Unlock()
	return rate, nil
}

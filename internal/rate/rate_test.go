package rate

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestInfoForCountry(t *testing.T) {
	tests := []struct {
		code     string
		currency string
		language string
	}{
		{"jp", "JPY", "ja"},
		{"KR", "KRW", "ko"},
		{"us", "USD", "en"},
		{"xx", "USD", "en"},
		{"", "USD", "en"},
	}
	for _, tt := range tests {
		info := InfoForCountry(tt.code)
		if info.Currency != tt.currency || info.Language != tt.language {
			t.Errorf("InfoForCountry(%q) = %s/%s, want %s/%s",
				tt.code, info.Currency, info.Language, tt.currency, tt.language)
		}
	}
}

func TestLookup(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/KRW" {
			t.Errorf("path = %q, want /KRW", r.URL.Path)
		}
		io.WriteString(w, `{"base": "KRW", "rates": {"TWD": 0.0224, "USD": 0.00075}}`)
	}))
	t.Cleanup(server.Close)

	svc := NewService("TWD")
	svc.baseURL = server.URL

	rate, err := svc.Lookup(context.Background(), "krw")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rate != 0.0224 {
		t.Fatalf("rate = %v, want 0.0224", rate)
	}

	// Second lookup is served from cache.
	if _, err := svc.Lookup(context.Background(), "KRW"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("API calls = %d, want 1", got)
	}
}

func TestLookupSameCurrency(t *testing.T) {
	svc := NewService("TWD")
	svc.baseURL = "http://unreachable.invalid"

	rate, err := svc.Lookup(context.Background(), "TWD")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rate != 1 {
		t.Fatalf("rate = %v, want 1 for identical pair", rate)
	}
}

func TestLookupMissingTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"base": "JPY", "rates": {"USD": 0.0066}}`)
	}))
	t.Cleanup(server.Close)

	svc := NewService("TWD")
	svc.baseURL = server.URL

	if _, err := svc.Lookup(context.Background(), "JPY"); err == nil {
		t.Fatal("expected error when home currency missing from rates")
	}
}

func TestDefaultHomeCurrency(t *testing.T) {
	svc := NewService("")
	if svc.HomeCurrency() != "TWD" {
		t.Fatalf("home currency = %q, want TWD", svc.HomeCurrency())
	}
}

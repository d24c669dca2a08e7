package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wayfarer-app/wayfarer/internal/model"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := Config{
		BaseURL:   server.URL,
		APIKey:    "key-123",
		ProjectID: "proj-abc",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(cfg, logger)
}

func TestSignIn(t *testing.T) {
	var gotPath, gotKey, gotProject string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		gotProject = r.Header.Get("X-Project-Id")
		json.NewEncoder(w).Encode(map[string]string{"uid": "device-7", "token": "tok-1"})
	}))

	uid, err := client.SignIn(context.Background())
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if uid != "device-7" {
		t.Errorf("uid = %q", uid)
	}
	if gotPath != "POST /v1/auth/anonymous" {
		t.Errorf("request = %q", gotPath)
	}
	if gotKey != "key-123" || gotProject != "proj-abc" {
		t.Errorf("headers = %q, %q", gotKey, gotProject)
	}
}

func TestSignInMissingFields(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"uid": "device-7"})
	}))
	if _, err := client.SignIn(context.Background()); err == nil {
		t.Error("expected error for response without token")
	}
}

func TestGetSendsBearerTokenAfterSignIn(t *testing.T) {
	rate := 0.044
	var gotAuth string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/anonymous":
			json.NewEncoder(w).Encode(map[string]string{"uid": "device-7", "token": "tok-1"})
		case "/v1/trips/trip_abc":
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(model.TripDocument{ExchangeRate: &rate})
		default:
			http.NotFound(w, r)
		}
	}))

	if _, err := client.SignIn(context.Background()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	doc, err := client.Get(context.Background(), "trip_abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.ExchangeRate == nil || *doc.ExchangeRate != 0.044 {
		t.Errorf("doc = %+v", doc)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestGetNotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	_, err := client.Get(context.Background(), "trip_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetServerError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := client.Get(context.Background(), "trip_abc")
	if err == nil {
		t.Fatal("expected error for 500")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("500 must not map to ErrNotFound")
	}
}

func TestMerge(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody model.TripDocument
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))

	rate := 0.25
	err := client.Merge(context.Background(), "trip_abc", &model.TripDocument{ExchangeRate: &rate, UpdatedBy: "device-7"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/v1/trips/trip_abc" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody.ExchangeRate == nil || *gotBody.ExchangeRate != 0.25 || gotBody.UpdatedBy != "device-7" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`{"baseUrl": "https://sync.example.com", "apiKey": "k", "projectId": "p"}`)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.BaseURL != "https://sync.example.com" || cfg.APIKey != "k" || cfg.ProjectID != "p" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestParseConfigRejectsNonJSON(t *testing.T) {
	cases := []string{
		``,
		`baseUrl = "https://x"`,
		`{baseUrl: "https://x"}`,
		`{"baseUrl": "https://x"`,
		`new Config({"baseUrl": "https://x"})`,
	}
	for _, input := range cases {
		if _, err := ParseConfig(input); err == nil {
			t.Errorf("ParseConfig(%q) accepted invalid input", input)
		}
	}
}

func TestParseConfigRequiresBaseURL(t *testing.T) {
	if _, err := ParseConfig(`{"apiKey": "k"}`); err == nil {
		t.Error("expected error for missing baseUrl")
	}
	if _, err := ParseConfig(`{"baseUrl": "   "}`); err == nil {
		t.Error("expected error for blank baseUrl")
	}
}

func TestWatchURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClient(Config{BaseURL: "https://sync.example.com/api/"}, logger)
	got, err := c.watchURL("trip_abc")
	if err != nil {
		t.Fatalf("watchURL: %v", err)
	}
	if got != "wss://sync.example.com/api/v1/trips/trip_abc/watch" {
		t.Errorf("url = %q", got)
	}

	c = NewClient(Config{BaseURL: "http://localhost:9090"}, logger)
	got, err = c.watchURL("trip_abc")
	if err != nil {
		t.Fatalf("watchURL: %v", err)
	}
	if got != "ws://localhost:9090/v1/trips/trip_abc/watch" {
		t.Errorf("url = %q", got)
	}
}

// Package remote talks to the hosted document service that backs
// multi-device sync. The service stores one document per trip id and
// supports get, merge-write, and a live watch stream.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wayfarer-app/wayfarer/internal/model"
)

// ErrNotFound is returned when the requested trip document does not exist.
var ErrNotFound = errors.New("trip document not found")

// Store is the narrow interface the sync session depends on, so the
// reconciler can be tested without a network.
type Store interface {
	// SignIn performs anonymous authentication and returns a stable
	// per-device actor id used only to tag writes.
	SignIn(ctx context.Context) (string, error)

	// Get fetches the document for a trip id once. Returns ErrNotFound if
	// the document does not exist.
	Get(ctx context.Context, tripID string) (*model.TripDocument, error)

	// Merge upserts the document with field-merge semantics: fields present
	// in doc replace the remote values, absent fields are preserved.
	Merge(ctx context.Context, tripID string, doc *model.TripDocument) error

	// Subscribe opens a live watch on the document. Every remote change is
	// delivered on the returned channel until the cancel func is called or
	// the context ends, after which the channel is closed.
	Subscribe(ctx context.Context, tripID string) (<-chan *model.TripDocument, func(), error)
}

// Config is the connection configuration for the document service. It is
// entered by the user as JSON; nothing else is accepted, and code-like
// object syntax is never evaluated.
type Config struct {
	BaseURL   string `json:"baseUrl"`
	APIKey    string `json:"apiKey"`
	ProjectID string `json:"projectId"`
}

// ParseConfig parses user-supplied configuration text. Input must be a
// strict JSON object.
func ParseConfig(input string) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(strings.NewReader(input))
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("configuration must be a JSON object: %w", err)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Config{}, errors.New("configuration is missing baseUrl")
	}
	return cfg, nil
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/wayfarer-app/wayfarer/internal/model"
)

const requestTimeout = 15 * time.Second

// Client implements Store against the hosted document service's HTTP and
// WebSocket API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu    sync.RWMutex
	token string
	uid   string
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

type signInResponse struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

// SignIn authenticates anonymously. The returned uid is a stable per-device
// identity used only to tag writes.
func (c *Client) SignIn(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/v1/auth/anonymous", nil)
	if err != nil {
		return "", fmt.Errorf("anonymous sign-in: %w", err)
	}

	var resp signInResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode sign-in response: %w", err)
	}
	if resp.UID == "" || resp.Token == "" {
		return "", fmt.Errorf("sign-in response missing uid or token")
	}

	c.mu.Lock()
	c.uid = resp.UID
	c.token = resp.Token
	c.mu.Unlock()

	return resp.UID, nil
}

func (c *Client) Get(ctx context.Context, tripID string) (*model.TripDocument, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/trips/"+url.PathEscape(tripID), nil)
	if err != nil {
		return nil, err
	}

	var doc model.TripDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode trip document: %w", err)
	}
	return &doc, nil
}

func (c *Client) Merge(ctx context.Context, tripID string, doc *model.TripDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode trip document: %w", err)
	}
	_, err = c.do(ctx, http.MethodPatch, "/v1/trips/"+url.PathEscape(tripID), payload)
	return err
}

// Subscribe opens the live watch stream over WebSocket. Messages are full
// or partial trip documents; each one is delivered in order on the channel.
func (c *Client) Subscribe(ctx context.Context, tripID string) (<-chan *model.TripDocument, func(), error) {
	wsURL, err := c.watchURL(tripID)
	if err != nil {
		return nil, nil, err
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	if c.cfg.APIKey != "" {
		header.Set("X-Api-Key", c.cfg.APIKey)
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, requestTimeout)
	defer cancelDial()

	conn, _, err := ws.Dial(dialCtx, wsURL, &ws.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, nil, fmt.Errorf("dial watch stream: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan *model.TripDocument)

	go func() {
		defer close(ch)
		defer conn.Close(ws.StatusNormalClosure, "")

		for {
			_, data, err := conn.Read(streamCtx)
			if err != nil {
				if streamCtx.Err() == nil {
					c.logger.Warn("watch stream closed", "trip", tripID, "error", err)
				}
				return
			}

			var doc model.TripDocument
			if err := json.Unmarshal(data, &doc); err != nil {
				c.logger.Warn("discarding unparsable watch message", "trip", tripID, "error", err)
				continue
			}

			select {
			case ch <- &doc:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return ch, cancel, nil
}

func (c *Client) watchURL(tripID string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/trips/" + url.PathEscape(tripID) + "/watch"
	return u.String(), nil
}

// do performs one authenticated request and returns the response body.
// 404 maps to ErrNotFound; other non-2xx statuses become errors.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}
	if c.cfg.ProjectID != "" {
		req.Header.Set("X-Project-Id", c.cfg.ProjectID)
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return data, nil
}

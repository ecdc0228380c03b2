// Package api is the typed HTTP client for the MedBridge patient API. It
// wraps the standard client with bearer-token injection, JSON
// encoding/decoding, error normalization, and a single-retry policy for
// server errors. The client is otherwise pure request/response: the only
// side effect beyond the network call is broadcasting the session-expired
// signal on 401 responses.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// Client talks to the MedBridge API at a fixed base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	bus        *events.Bus
	retry      RetryPolicy

	mu    sync.RWMutex
	token string
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	// HTTPClient is optional and defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// Bus receives the auth-expired broadcast; optional.
	Bus *events.Bus
	// Retry overrides DefaultRetryPolicy when non-nil.
	Retry *RetryPolicy
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	retry := DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		bus:        cfg.Bus,
		retry:      retry,
	}
}

// SetToken installs the bearer token injected on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken removes the bearer token; subsequent requests are anonymous.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// Token returns the currently installed bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// request performs one API call. in may be nil (no body), url.Values
// (form-encoded) or any JSON-marshalable value. out, when non-nil, receives
// the decoded JSON response. Server errors (>=500) are retried per the
// client's policy; all other failures surface immediately as *Error.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body []byte
	contentType := ""
	switch v := in.(type) {
	case nil:
	case url.Values:
		body = []byte(v.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		body = b
		contentType = "application/json"
	}

	u := c.baseURL + path
	if len(query) != 0 {
		u += "?" + query.Encode()
	}

	for attempt := 1; ; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return fmt.Errorf("api: build %s %s: %w", method, path, err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", uuid.New().String())
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("api: %s %s: %w", method, path, err)
		}

		if c.retry.ShouldRetry(attempt, res.StatusCode) {
			io.Copy(io.Discard, res.Body) //nolint:errcheck
			res.Body.Close()
			c.logger.Warn().
				Str("method", method).
				Str("path", path).
				Int("status", res.StatusCode).
				Int("attempt", attempt).
				Msg("server error, retrying")
			c.retry.wait()
			continue
		}
		return c.finish(res, method, path, out)
	}
}

func (c *Client) finish(res *http.Response, method, path string, out interface{}) error {
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, res.Body) //nolint:errcheck
			return nil
		}
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("api: decode %s %s: %w", method, path, err)
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	detail := fmt.Sprintf("request failed: %d", res.StatusCode)
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			detail = s
		} else {
			detail = string(payload.Detail)
		}
	} else if len(bytes.TrimSpace(raw)) > 0 {
		detail = string(raw)
	}

	if res.StatusCode == http.StatusUnauthorized && c.bus != nil {
		c.bus.AuthExpired()
	}

	return &Error{Status: res.StatusCode, Detail: detail}
}

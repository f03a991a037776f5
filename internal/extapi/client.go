package extapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmarkou/energypulse/config"
)

// HTTPClient describes the HTTP transport used by the client.
// *http.Client satisfies it; tests substitute a fake.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ServiceError reports a failure talking to the external provider: transport
// error, non-success status, or malformed payload. It wraps the underlying
// cause for diagnostics.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("external api: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Client talks to the external price provider. It logs in with configured
// credentials, caches the bearer token process-wide, and fetches raw price
// readings for a half-open UTC window.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient HTTPClient

	tokens *tokenCache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP transport (used by tests).
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a provider client from configuration.
func NewClient(cfg config.ExternalAPIConfig, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     &tokenCache{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tokenResponse is the login payload. The token field name varies by
// deployment; expires_in is optional (seconds).
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// login performs the credential round trip against POST /token.
func (c *Client) login(ctx context.Context) (string, time.Time, error) {
	payload, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", bytes.NewReader(payload))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read token response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", time.Time{}, fmt.Errorf("token request failed (%d): %s", res.StatusCode, truncate(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	token := tr.AccessToken
	if token == "" {
		token = tr.Token
	}
	if token == "" {
		return "", time.Time{}, fmt.Errorf("token response missing access_token")
	}

	var expiresAt time.Time
	if tr.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return token, expiresAt, nil
}

// FetchReadings retrieves and normalizes raw readings for [fromUTC, toUTC).
//
// The provider's data endpoint takes calendar-day bounds; the orchestrator
// re-applies the exact instant window after normalization, so over-fetching a
// partial day here is harmless.
func (c *Client) FetchReadings(ctx context.Context, fromUTC, toUTC time.Time) ([]Reading, error) {
	token, err := c.tokens.get(ctx, c.login)
	if err != nil {
		return nil, &ServiceError{Op: "login", Err: err}
	}

	q := url.Values{}
	q.Set("date_from", fromUTC.UTC().Format("2006-01-02"))
	q.Set("date_to", toUTC.UTC().Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/mcp?"+q.Encode(), nil)
	if err != nil {
		return nil, &ServiceError{Op: "fetch", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Op: "fetch", Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &ServiceError{Op: "fetch", Err: fmt.Errorf("read response: %w", err)}
	}
	if res.StatusCode == http.StatusUnauthorized {
		// Token revoked server-side; drop it so the next call logs in again.
		c.tokens.invalidate()
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &ServiceError{Op: "fetch", Err: fmt.Errorf("request failed (%d): %s", res.StatusCode, truncate(body))}
	}

	readings, err := ParseReadings(body)
	if err != nil {
		return nil, &ServiceError{Op: "parse", Err: err}
	}
	return readings, nil
}

// truncate keeps error bodies short enough for logs.
func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

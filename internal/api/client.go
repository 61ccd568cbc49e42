package api

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

	"github.com/rs/zerolog"

	"github.com/samg3003/wfs-fintech-hackathon/internal/session"
)

// Options parameterise the backend client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client wraps the AdvisorIQ backend REST surface. It attaches the stored
// bearer token to every request and normalises failures into the taxonomy in
// errors.go. Response bodies are decoded as-is; no schema validation happens
// here.
type Client struct {
	opts     Options
	baseURL  string
	http     *http.Client
	sessions *session.Store
	logger   zerolog.Logger
}

// NewClient constructs a backend client.
func NewClient(opts Options, sessions *session.Store, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	return &Client{
		opts:     opts,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		sessions: sessions,
		logger:   logger.With().Str("component", "api_client").Logger(),
	}
}

// BaseURL reports the resolved backend address, mainly for error messages.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, payload, target any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "advisoriq-cli/1.0")
	}
	if token, ok := c.sessions.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.sessions.Clear(); err != nil {
			c.logger.Error().Err(err).Msg("failed to clear session after 401")
		}
		c.logger.Warn().Str("path", path).Msg("backend rejected bearer token")
		return fmt.Errorf("%s %s: %w", method, path, ErrSessionExpired)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Detail: parseDetail(payloadBytes)}
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(payloadBytes, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseDetail extracts FastAPI's {"detail": ...} error body when present.
func parseDetail(payload []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", body.Detail)
	}
	return strings.TrimSpace(string(payload))
}

// Login exchanges credentials for a bearer token. The caller decides whether
// to persist the token into the session store.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	req := map[string]string{"email": email, "password": password}
	return out, c.do(ctx, http.MethodPost, "/api/auth/login", req, &out)
}

// Me checks validity of the current token.
func (c *Client) Me(ctx context.Context) (MeResponse, error) {
	var out MeResponse
	return out, c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
}

// Health checks backend availability without auth.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	return out, c.do(ctx, http.MethodGet, "/api/health", nil, &out)
}

// Universe fetches the ticker universe and regime summary.
func (c *Client) Universe(ctx context.Context) (UniverseResponse, error) {
	var out UniverseResponse
	return out, c.do(ctx, http.MethodGet, "/api/universe", nil, &out)
}

// Signals fetches the full signal list, order as delivered.
func (c *Client) Signals(ctx context.Context) (SignalsResponse, error) {
	var out SignalsResponse
	return out, c.do(ctx, http.MethodGet, "/api/signals", nil, &out)
}

// Portfolios fetches every client's portfolio comparison.
func (c *Client) Portfolios(ctx context.Context) (PortfoliosResponse, error) {
	var out PortfoliosResponse
	return out, c.do(ctx, http.MethodGet, "/api/portfolios", nil, &out)
}

// StressTests fetches the stress scenario list.
func (c *Client) StressTests(ctx context.Context) (StressTestsResponse, error) {
	var out StressTestsResponse
	return out, c.do(ctx, http.MethodGet, "/api/stress-tests", nil, &out)
}

// Explain fetches the generated narrative for one client.
func (c *Client) Explain(ctx context.Context, clientID string) (Narrative, error) {
	var out Narrative
	return out, c.do(ctx, http.MethodGet, "/api/explain/"+url.PathEscape(clientID), nil, &out)
}

// CreateClient submits a new client record and returns the created profile.
func (c *Client) CreateClient(ctx context.Context, req CreateClientRequest) (ClientProfile, error) {
	var out ClientProfile
	return out, c.do(ctx, http.MethodPost, "/api/clients", req, &out)
}

// OptionsIV fetches cache-first ATM implied vol per ticker. Set refresh to
// force a live fetch server-side.
func (c *Client) OptionsIV(ctx context.Context, refresh bool) (OptionsIVResponse, error) {
	var out OptionsIVResponse
	path := "/api/options-iv"
	if refresh {
		path += "?refresh=true"
	}
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// Package scoring is the HTTP client for the external risk scoring service.
// Requests are grouped the way the service exposes them: health assessment,
// hospital lookup and recommendations. Failures are logged and returned.
package scoring

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

	"github.com/riskcheck/riskcheck/internal/platform/requestid"
)

const (
	DefaultBaseURL    = "http://localhost:5000/api"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 250 * time.Millisecond

	maxResponseBytes = 4 << 20
	maxErrorBytes    = 64 << 10
)

// Config holds the connection settings for the scoring service.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	APIKey     string
	MaxRetries int
	RetryDelay time.Duration
}

// Observer receives one call per round trip to the scoring service.
type Observer interface {
	ObserveScoringCall(operation string, status int, elapsed time.Duration, err error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used to report failed requests.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// Client talks to the scoring service.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
	observer   Observer

	Health          *HealthAPI
	Hospitals       *HospitalsAPI
	Recommendations *RecommendationsAPI
}

// New creates a Client. Zero config values fall back to the defaults.
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse scoring base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scoring base url must use http or https, got %q", base)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.Health = &HealthAPI{c: c}
	c.Hospitals = &HospitalsAPI{c: c}
	c.Recommendations = &RecommendationsAPI{c: c}
	return c, nil
}

// BaseURL returns the normalised service base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Ping checks that the service answers its /health endpoint, which lives at
// the root of the host rather than under the API prefix.
func (c *Client) Ping(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	u.Path = "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping scoring service: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBytes))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ping scoring service: status %d", resp.StatusCode)
	}
	return nil
}

// do sends one logical request. GETs are retried on transport errors, 429
// and 5xx; POSTs are sent once.
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		payload = b
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.maxRetries
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			t := time.NewTimer(c.retryDelay * time.Duration(attempt-1))
			select {
			case <-ctx.Done():
				t.Stop()
				err = ctx.Err()
				c.logFailure(ctx, method, path, err)
				return err
			case <-t.C:
			}
		}

		start := time.Now()
		var status int
		status, err = c.roundTrip(ctx, method, path, payload, out)
		if c.observer != nil {
			c.observer.ObserveScoringCall(op, status, time.Since(start), err)
		}
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			break
		}
		c.logger.Warn().Err(err).Str("path", path).Int("attempt", attempt).Msg("retrying scoring request")
	}

	c.logFailure(ctx, method, path, err)
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if rid := requestid.FromContext(ctx); rid != "" {
		req.Header.Set(requestid.Header, rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return resp.StatusCode, newAPIError(method, path, resp.StatusCode, b)
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: %w: %v", method, path, errDecode, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) logFailure(ctx context.Context, method, path string, err error) {
	evt := c.logger.Error().Err(err).
		Str("method", method).
		Str("path", path)
	if status := StatusCode(err); status != 0 {
		evt = evt.Int("status", status)
	}
	if rid := requestid.FromContext(ctx); rid != "" {
		evt = evt.Str("request_id", rid)
	}
	evt.Msg("scoring api error")
}

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/time/rate"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
)

// errorBodyLimit bounds how much of an error response is kept.
const errorBodyLimit = 512

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError carries a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d: %s", ErrUnexpectedStatus, e.Code, e.Body)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// Client talks to the document store. Every request waits on a shared rate
// limiter first.
type Client struct {
	http     *http.Client
	baseURL  string
	username string
	password string
	limiter  *rate.Limiter
}

// NewClient creates a Client from the telemetry configuration.
func NewClient(cfg config.TelemetryConfig) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(cfg.BaseURL(), "/"),
		username: cfg.Username,
		password: cfg.Password,
		limiter:  NewLimiter(cfg.RateLimit),
	}
}

// NewLimiter allows MaxRequests per window with bursts of MaxRequests. A zero
// value disables limiting.
func NewLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	if cfg.MaxRequests <= 0 || cfg.PerMilliseconds <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	every := cfg.Window() / time.Duration(cfg.MaxRequests)

	return rate.NewLimiter(rate.Every(every), cfg.MaxRequests)
}

// IndexDocument posts doc to /<index>/_doc.
func (c *Client) IndexDocument(ctx context.Context, index string, doc any) error {
	return c.do(ctx, http.MethodPost, "/"+index+"/_doc", doc)
}

// CreateIndex puts an index with the given body to /<index>.
func (c *Client) CreateIndex(ctx context.Context, index string, body any) error {
	return c.do(ctx, http.MethodPut, "/"+index, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	err = c.limiter.Wait(ctx)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	return fmt.Errorf("%s %s: %w", method, path, &StatusError{
		Code: resp.StatusCode,
		Body: strings.TrimSpace(string(snippet)),
	})
}

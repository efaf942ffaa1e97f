package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL       = "https://api.github.com"
	defaultUserAgent     = "threatcanvas-integrations"
	defaultTimeout       = 30 * time.Second
	defaultRateLimitWait = 60 * time.Second

	// At most 3 attempts total for transient failures; 429 handling is a
	// separate path and not counted against this budget.
	maxRetries = 2

	lowRemainingThreshold = 10
)

// Client is a rate-limit-aware GitHub REST client with bearer-token auth,
// bounded retry with exponential delay on transient failures, and automatic
// back-off on 429 responses.
type Client struct {
	baseURL     string
	token       string
	http        *retryablehttp.Client
	throttle    *rate.Limiter
	state       atomic.Pointer[RateLimitState]
	userAgent   string
	backoffBase time.Duration
}

// Option configures a Client at construction.
type Option func(*Client)

// WithBaseURL overrides the API base URL (tests, GitHub Enterprise).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout sets the per-call HTTP timeout. Non-positive values are
// ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.HTTPClient.Timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying transport (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http.HTTPClient = hc
		}
	}
}

// WithRetryWaitBase scales the transient-retry backoff. The delay before
// attempt n is base << (n-1); the default base of one second yields 1s, 2s.
func WithRetryWaitBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// WithThrottle enables a client-side token bucket limiting outbound request
// rate, for bulk-scan politeness.
func WithThrottle(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 && burst > 0 {
			c.throttle = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// New creates a Client. A missing token means the GitHub integration is not
// configured and returns ErrNotConfigured.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrNotConfigured
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.Logger = nil
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = defaultTimeout

	c := &Client{
		baseURL:     defaultBaseURL,
		token:       token,
		http:        rc,
		userAgent:   defaultUserAgent,
		backoffBase: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	rc.Backoff = func(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
		return c.backoffBase << attemptNum
	}

	return c, nil
}

// checkRetry retries network errors, 5xx and 408. 429 is deliberately not
// retried here: the rate-limit path sleeps until reset and reissues the
// request outside the transient budget.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout {
		return true, nil
	}
	return false, nil
}

// RateLimit returns a copy of the state parsed from the last API response.
func (c *Client) RateLimit() (RateLimitState, bool) {
	st := c.state.Load()
	if st == nil {
		return RateLimitState{}, false
	}
	return *st, true
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	return c.request(ctx, method, path, body, out, false)
}

func (c *Client) request(ctx context.Context, method, path string, body, out any, retriedAfterReset bool) error {
	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			return fmt.Errorf("throttle wait: %w", err)
		}
	}

	if err := c.waitIfExhausted(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%w: %s %s: %w", ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	c.updateRateLimit(ctx, resp.Header)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		if retriedAfterReset {
			return fmt.Errorf("%w: %s %s: still rate limited after reset", ErrTransient, method, path)
		}
		wait := resetWait(resp.Header, time.Now())
		slog.WarnContext(ctx, "rate limited, waiting for reset",
			"method", method,
			"path", path,
			"wait", wait.Round(time.Second),
		)
		rateLimitWaits.Inc()
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
		return c.request(ctx, method, path, body, out, true)

	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s: status %d", ErrTransient, method, path, resp.StatusCode)

	case resp.StatusCode >= 400:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s: status %d", ErrPermanent, method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// waitIfExhausted pre-emptively sleeps until reset when the last response
// reported zero remaining calls.
func (c *Client) waitIfExhausted(ctx context.Context) error {
	st := c.state.Load()
	if st == nil || st.Remaining > 0 {
		return nil
	}

	wait := time.Until(st.ResetAt)
	if wait <= 0 {
		return nil
	}

	slog.WarnContext(ctx, "rate limit exhausted, waiting before request",
		"reset_at", st.ResetAt,
		"wait", wait.Round(time.Second),
	)
	rateLimitWaits.Inc()
	return sleepContext(ctx, wait)
}

func (c *Client) updateRateLimit(ctx context.Context, h http.Header) {
	state, ok := parseRateLimit(h)
	if !ok {
		return
	}

	c.state.Store(&state)
	rateLimitRemaining.Set(float64(state.Remaining))

	if state.Remaining < lowRemainingThreshold {
		slog.WarnContext(ctx, "rate limit running low",
			"remaining", state.Remaining,
			"limit", state.Limit,
			"reset_at", state.ResetAt,
		)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

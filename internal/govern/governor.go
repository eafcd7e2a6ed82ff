// Package govern mediates every outbound call to the people service through a
// shared, adaptive request-rate budget. The budget refreshes from response
// headers after each call; a call issued near the bottom of the window waits
// for the window to roll over first, and a 429 response is absorbed by
// waiting out the upstream's retry hint and re-issuing the request, up to a
// fixed cap.
package govern

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Response headers carrying the upstream's view of the budget.
const (
	headerRateLimit  = "X-API-Request-Rate-Limit"
	headerRateCount  = "X-API-Request-Rate-Count"
	headerRetryAfter = "Retry-After"
	headerRequestID  = "X-Request-Id"
)

// maxResponseSize caps response bodies to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// ErrRateLimitExhausted is returned when a single governed call has been
// rate-limited more times than the retry cap allows.
var ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

// Budget is the process-wide request budget. Remaining never exceeds Limit;
// ResetAt is never more than one window length in the future once refreshed.
type Budget struct {
	Limit           int
	Remaining       int
	ResetAt         time.Time
	TotalCalls      int
	RateLimitErrors int
}

// Config holds the governor's tuning knobs.
type Config struct {
	// Window is the upstream's rate window length.
	Window time.Duration

	// LowWaterMark triggers a proactive wait when Remaining drops to or
	// below it inside the current window.
	LowWaterMark int

	// ThrottleBuffer is added to proactive waits so the window has
	// actually rolled over upstream before the next request lands.
	ThrottleBuffer time.Duration

	// RetryAfterFallback is the wait used for a 429 without a Retry-After
	// header.
	RetryAfterFallback time.Duration

	// MaxRetries caps how many 429s a single governed call absorbs before
	// ErrRateLimitExhausted is returned.
	MaxRetries int

	// DefaultLimit seeds the budget before the first response headers
	// arrive.
	DefaultLimit int
}

// DefaultConfig returns the stock governor tuning.
func DefaultConfig() Config {
	return Config{
		Window:             20 * time.Second,
		LowWaterMark:       10,
		ThrottleBuffer:     500 * time.Millisecond,
		RetryAfterFallback: 10 * time.Second,
		MaxRetries:         5,
		DefaultLimit:       100,
	}
}

// Request describes one governed HTTP call. The body is held as bytes so the
// request can be re-issued after a 429 wait.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Result is the outcome of a governed call with the body fully read.
// Non-2xx statuses other than 429 are returned as results, not errors;
// classification belongs to the caller.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Governor serializes all budget mutation behind one mutex. A single
// instance is shared by everything that talks to the people service.
type Governor struct {
	cfg     Config
	client  *http.Client
	logger  *slog.Logger
	metrics *Metrics

	// now and sleep are injectable for deterministic tests. sleep takes
	// only a duration: a governed call that has begun waiting out a
	// throttle window runs to completion.
	now   func() time.Time
	sleep func(time.Duration)

	mu     sync.Mutex
	budget Budget
}

// Option configures a Governor.
type Option func(*Governor)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Governor) { g.client = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Governor) { g.logger = logger }
}

// WithConfig replaces the default tuning.
func WithConfig(cfg Config) Option {
	return func(g *Governor) { g.cfg = cfg }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(g *Governor) { g.metrics = m }
}

// WithClock substitutes the time source and sleeper, for tests.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(g *Governor) {
		g.now = now
		g.sleep = sleep
	}
}

// New returns a Governor with a full budget and a fresh window.
func New(opts ...Option) *Governor {
	g := &Governor{
		cfg:    DefaultConfig(),
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
		now:    time.Now,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.budget = Budget{
		Limit:     g.cfg.DefaultLimit,
		Remaining: g.cfg.DefaultLimit,
		ResetAt:   g.now().Add(g.cfg.Window),
	}
	return g
}

// Execute performs one governed call. It may suspend the calling goroutine
// while the budget window rolls over; rate limiting is resolved by waiting
// and retrying, never surfaced as an error below the retry cap. Transport
// errors and non-429 statuses pass through unchanged.
func (g *Governor) Execute(ctx context.Context, req Request) (*Result, error) {
	requestID := uuid.New().String()

	for attempt := 0; ; attempt++ {
		g.waitForHeadroom(requestID)

		res, err := g.do(ctx, req, requestID)
		if err != nil {
			return nil, err
		}
		g.observe(res)

		if res.StatusCode != http.StatusTooManyRequests {
			return res, nil
		}

		g.recordRateLimited()
		if attempt >= g.cfg.MaxRetries {
			return nil, fmt.Errorf("%s %s after %d retries: %w", req.Method, req.URL, attempt, ErrRateLimitExhausted)
		}

		wait := g.retryAfter(res)
		g.logger.Warn("upstream rate limited, backing off",
			"request_id", requestID,
			"wait", wait,
			"attempt", attempt+1)
		g.metrics.observeThrottle(wait)
		g.sleep(wait)
		g.openFreshWindow()
	}
}

// Stats returns a copy of the current budget.
func (g *Governor) Stats() Budget {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.budget
}

// ResetStats resets the budget wholesale, counters included.
func (g *Governor) ResetStats() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.budget = Budget{
		Limit:     g.cfg.DefaultLimit,
		Remaining: g.cfg.DefaultLimit,
		ResetAt:   g.now().Add(g.cfg.Window),
	}
}

// waitForHeadroom blocks until the budget has room for another call. When
// Remaining is at or below the low-water mark inside the current window, the
// call waits for the window to roll over plus a small buffer, then opens a
// fresh window.
func (g *Governor) waitForHeadroom(requestID string) {
	g.mu.Lock()
	now := g.now()
	if !now.Before(g.budget.ResetAt) {
		// The upstream window already rolled over; capacity is back.
		g.budget.Remaining = g.budget.Limit
		g.budget.ResetAt = now.Add(g.cfg.Window)
		g.mu.Unlock()
		return
	}
	if g.budget.Remaining > g.cfg.LowWaterMark {
		g.mu.Unlock()
		return
	}
	remaining := g.budget.Remaining
	wait := g.budget.ResetAt.Sub(now) + g.cfg.ThrottleBuffer
	g.mu.Unlock()

	g.logger.Info("rate budget low, waiting for window reset",
		"request_id", requestID,
		"remaining", remaining,
		"wait", wait)
	g.metrics.observeThrottle(wait)
	g.sleep(wait)
	g.openFreshWindow()
}

// do issues the HTTP request once and reads the full body.
func (g *Governor) do(ctx context.Context, req Request, requestID string) (*Result, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set(headerRequestID, requestID)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	g.metrics.observeCall(resp.StatusCode)
	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// observe refreshes the budget from response headers and counts the call.
func (g *Governor) observe(res *Result) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.budget.TotalCalls++

	limit, limitOK := headerInt(res.Header, headerRateLimit)
	count, countOK := headerInt(res.Header, headerRateCount)
	switch {
	case limitOK && countOK:
		g.budget.Limit = limit
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		g.budget.Remaining = remaining
	case g.budget.Remaining > 0:
		// No headers on this response; assume the call consumed one slot.
		g.budget.Remaining--
	}

	if !g.now().Before(g.budget.ResetAt) {
		g.budget.ResetAt = g.now().Add(g.cfg.Window)
	}
}

// recordRateLimited counts a 429 against the budget stats.
func (g *Governor) recordRateLimited() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.budget.RateLimitErrors++
	g.budget.Remaining = 0
	g.metrics.observeRateLimited()
}

// openFreshWindow restores full capacity and starts a new window.
func (g *Governor) openFreshWindow() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.budget.Remaining = g.budget.Limit
	g.budget.ResetAt = g.now().Add(g.cfg.Window)
}

// retryAfter returns the upstream's retry hint, or the fallback when the
// header is absent or malformed. Zero is a valid hint meaning retry now.
func (g *Governor) retryAfter(res *Result) time.Duration {
	if secs, ok := headerInt(res.Header, headerRetryAfter); ok && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return g.cfg.RetryAfterFallback
}

// headerInt parses an integer header value.
func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

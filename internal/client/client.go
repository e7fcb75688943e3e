// Package client holds the outbound HTTP clients (PokeAPI, Open-Meteo) and the
// shared retry and circuit-breaker plumbing they run on.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/weather-insights-service/internal/observability"
)

var (
	ErrNotFound        = errors.New("resource not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
	ErrCircuitOpen     = errors.New("circuit breaker open")
)

// maxBodyBytes caps upstream response bodies.
const maxBodyBytes = 4 << 20

// Options configures timeouts, retries and the circuit breaker of a client.
type Options struct {
	Timeout          time.Duration
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// DefaultOptions returns the settings used when config leaves them unset.
func DefaultOptions() Options {
	return Options{
		Timeout:          5 * time.Second,
		RetryAttempts:    3,
		RetryBaseDelay:   100 * time.Millisecond,
		RetryMaxDelay:    2 * time.Second,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = d.RetryAttempts
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = d.RetryBaseDelay
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = d.RetryMaxDelay
	}
	if o.BreakerThreshold == 0 {
		o.BreakerThreshold = d.BreakerThreshold
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = d.BreakerTimeout
	}
	return o
}

// httpGetter performs GETs with per-attempt timeouts, retries with backoff and
// jitter, and a circuit breaker. name labels metrics and the breaker.
type httpGetter struct {
	name    string
	client  *http.Client
	opts    Options
	breaker *gobreaker.CircuitBreaker
}

func newHTTPGetter(name string, opts Options) *httpGetter {
	opts = opts.withDefaults()
	threshold := opts.BreakerThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
	observability.CircuitBreakerState.WithLabelValues(name).Set(0)
	return &httpGetter{
		name:    name,
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		breaker: breaker,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// get fetches url and returns the body of a 2xx response.
func (c *httpGetter) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			observability.UpstreamRetriesTotal.WithLabelValues(c.name).Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.callOnce(ctx, url)
		})
		if err == nil {
			return result.([]byte), nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, c.name, err)
		}

		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *httpGetter) callOnce(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		c.observe("error", start)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.observe(string(CategorizeError(err)), start)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	c.observe(statusLabel(resp.StatusCode), start)

	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func (c *httpGetter) observe(status string, start time.Time) {
	observability.UpstreamCallsTotal.WithLabelValues(c.name, status).Inc()
	observability.UpstreamDuration.WithLabelValues(c.name, status).Observe(time.Since(start).Seconds())
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *httpGetter) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.opts.RetryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.opts.RetryMaxDelay) {
		delay = float64(c.opts.RetryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func handleErrorResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

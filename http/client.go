// Package http provides the outbound HTTP client for talking to the
// transcript provider, with rate limiting, circuit breaking, and
// rotating browser headers. Retries are the caller's concern: the
// fetch service decides which failures are worth another attempt.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	// Timeout for individual HTTP requests.
	Timeout time.Duration

	// Headers applied to every outbound request.
	Headers HeaderConfig

	// RateLimiter configuration for outbound throttling.
	RateLimiter RateLimiterConfig

	// CircuitBreaker configuration for failing fast.
	CircuitBreaker CircuitBreakerConfig

	// Transport configures connection pooling.
	Transport TransportConfig
}

// TransportConfig configures the HTTP transport (connection pooling).
type TransportConfig struct {
	// MaxIdleConns is the maximum number of idle connections. Default: 20
	MaxIdleConns int
	// MaxIdleConnsPerHost is the maximum idle connections per host. Default: 10
	MaxIdleConnsPerHost int
	// MaxConnsPerHost is the maximum concurrent connections per host. Default: 20
	MaxConnsPerHost int
	// IdleConnTimeout is how long an idle connection stays open. Default: 90s
	IdleConnTimeout time.Duration
	// ForceAttemptHTTP2 forces HTTP/2 where the server supports it. Default: true
	ForceAttemptHTTP2 bool
}

// DefaultConfig returns sensible defaults for the outbound client.
func DefaultConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		Headers:        DefaultHeaderConfig(),
		RateLimiter:    DefaultRateLimiterConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
		Transport:      DefaultTransportConfig(),
	}
}

// DefaultTransportConfig returns sensible transport defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// Client wraps an HTTP client with rate limiting and a circuit breaker.
type Client struct {
	base           *http.Client
	config         *Config
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
}

// New creates a new outbound HTTP client with the given configuration.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.Transport.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		ForceAttemptHTTP2:   cfg.Transport.ForceAttemptHTTP2,
	}

	return &Client{
		base: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		config:         cfg,
		rateLimiter:    NewRateLimiter(cfg.RateLimiter),
		circuitBreaker: NewCircuitBreaker(cfg.CircuitBreaker),
	}
}

// Response represents an HTTP response with status code and body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, nil)
}

// Do performs a single HTTP request, waiting on the rate limiter first
// and failing fast when the circuit breaker is open. A 429 response is
// returned as *RateLimitError and feeds the limiter's dynamic backoff;
// any other non-2xx response is returned as *StatusError.
func (c *Client) Do(ctx context.Context, method, urlStr string, body io.Reader, headers map[string]string) (*Response, error) {
	if err := c.circuitBreaker.Allow(); err != nil {
		return nil, err
	}

	if err := c.rateLimiter.WaitForBackoff(ctx); err != nil {
		return nil, err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, err
	}

	for k, v := range c.config.Headers.pick() {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		c.circuitBreaker.RecordFailure(err)
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header)
		if recommended := c.rateLimiter.RecordRateLimitError(retryAfter); recommended > retryAfter {
			retryAfter = recommended
		}
		rlErr := &RateLimitError{StatusCode: resp.StatusCode, RetryAfter: retryAfter}
		c.circuitBreaker.RecordFailure(rlErr)
		return nil, rlErr
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.circuitBreaker.RecordFailure(err)
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		stErr := &StatusError{StatusCode: resp.StatusCode, Body: respBody}
		// A missing video is not a sign of provider trouble; only 5xx
		// responses count against the circuit.
		if resp.StatusCode >= 500 {
			c.circuitBreaker.RecordFailure(stErr)
		}
		return nil, stErr
	}

	c.rateLimiter.RecordSuccess()
	c.circuitBreaker.RecordSuccess()

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// CircuitState exposes the breaker state for monitoring.
func (c *Client) CircuitState() CircuitState {
	return c.circuitBreaker.State()
}

// Close releases idle connections.
func (c *Client) Close() error {
	if c.base != nil {
		c.base.CloseIdleConnections()
	}
	return nil
}

// parseRetryAfter extracts the Retry-After header value, accepting
// either integer seconds or an HTTP date. Returns 0 if not present.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}

	return 0
}

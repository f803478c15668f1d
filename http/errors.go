package http

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError indicates the provider rate limited the request.
type RateLimitError struct {
	// StatusCode is the HTTP status code returned by the provider.
	StatusCode int
	// RetryAfter indicates how long to wait before retrying, if the
	// provider supplied a Retry-After header.
	RetryAfter time.Duration
}

// Error returns a string representation of the rate limit error.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (status %d): retry after %v", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (status %d)", e.StatusCode)
}

// StatusError indicates a non-2xx response from the provider.
type StatusError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Body is the response body.
	Body []byte
}

// Error returns a string representation of the status error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("provider request failed: status %d", e.StatusCode)
}

// ErrCircuitOpen is returned when the circuit breaker is rejecting
// requests to the provider.
var ErrCircuitOpen = errors.New("circuit breaker is open")

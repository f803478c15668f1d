package http

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default backoff values applied when the provider signals rate limiting.
const (
	// RateLimitInitialBackoff is the first backoff after a rate limit error.
	RateLimitInitialBackoff = 1 * time.Second
	// RateLimitMaxBackoff is the maximum backoff between requests.
	RateLimitMaxBackoff = 60 * time.Second
	// RateLimitBackoffMultiplier is the multiplier for exponential backoff.
	RateLimitBackoffMultiplier = 2.0
	// BackoffCooldownPeriod is how long after the last error before the
	// original rate is restored.
	BackoffCooldownPeriod = 5 * time.Minute
	// MinRPSMultiplier is the floor for dynamic rate reduction
	// (0.25 = 25% of the configured rate).
	MinRPSMultiplier = 0.25
)

// RateLimiterConfig defines outbound rate limiting behavior.
type RateLimiterConfig struct {
	// RPS is the allowed requests per second to the provider (0 = unlimited).
	RPS float64
	// EnableDynamicBackoff enables automatic rate reduction when the
	// provider returns rate limit errors.
	EnableDynamicBackoff bool
}

// DefaultRateLimiterConfig returns a conservative default aligned with
// what YouTube tolerates from unauthenticated clients.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RPS:                  2.5,
		EnableDynamicBackoff: true,
	}
}

// BackoffState tracks rate limit backoff for the provider.
type BackoffState struct {
	// CurrentBackoff is the current backoff duration.
	CurrentBackoff time.Duration
	// LastError is when the last rate limit error occurred.
	LastError time.Time
	// ConsecutiveErrors is the count of consecutive rate limit errors.
	ConsecutiveErrors int
	// ReducedRPS is the current reduced rate (0 means using the original).
	ReducedRPS float64
}

// RateLimiter throttles outbound requests to the transcript provider
// using a token bucket. Unlike a general-purpose client, the service
// talks to a single upstream, so no per-domain bookkeeping is needed.
type RateLimiter struct {
	limiter *rate.Limiter
	config  RateLimiterConfig

	mu      sync.Mutex
	backoff *BackoffState
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{config: cfg}
	if cfg.RPS > 0 {
		rl.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return rl
}

// Wait blocks until the rate limit allows a request, or the context is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}

// WaitForBackoff waits out any backoff period accrued from previous
// rate limit errors. Returns immediately if not in a backoff state.
func (rl *RateLimiter) WaitForBackoff(ctx context.Context) error {
	state := rl.State()
	if state == nil {
		return nil
	}

	remaining := state.CurrentBackoff - time.Since(state.LastError)
	if remaining <= 0 {
		return nil
	}

	select {
	case <-time.After(remaining):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordRateLimitError records a rate limit response and updates backoff
// state. Returns the recommended backoff before the next request, taking
// the provider's Retry-After into account when longer.
func (rl *RateLimiter) RecordRateLimitError(retryAfter time.Duration) time.Duration {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		if retryAfter > 0 {
			return retryAfter
		}
		return RateLimitInitialBackoff
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.backoff == nil {
		rl.backoff = &BackoffState{CurrentBackoff: RateLimitInitialBackoff}
	}

	state := rl.backoff
	state.LastError = time.Now()
	state.ConsecutiveErrors++

	// 1s -> 2s -> 4s -> ... -> max
	if state.ConsecutiveErrors > 1 {
		state.CurrentBackoff = time.Duration(float64(state.CurrentBackoff) * RateLimitBackoffMultiplier)
		if state.CurrentBackoff > RateLimitMaxBackoff {
			state.CurrentBackoff = RateLimitMaxBackoff
		}
	}

	if retryAfter > state.CurrentBackoff {
		state.CurrentBackoff = retryAfter
	}

	rl.reduceRate(state)

	return state.CurrentBackoff
}

// reduceRate lowers the token bucket rate based on consecutive errors.
// Must be called with the mutex held.
func (rl *RateLimiter) reduceRate(state *BackoffState) {
	if rl.limiter == nil {
		return
	}

	reductionFactor := 1.0
	switch {
	case state.ConsecutiveErrors >= 3:
		reductionFactor = MinRPSMultiplier
	case state.ConsecutiveErrors == 2:
		reductionFactor = 0.5
	case state.ConsecutiveErrors == 1:
		reductionFactor = 0.75
	}

	newRPS := rl.config.RPS * reductionFactor
	if newRPS < rl.config.RPS*MinRPSMultiplier {
		newRPS = rl.config.RPS * MinRPSMultiplier
	}

	state.ReducedRPS = newRPS
	rl.limiter.SetLimit(rate.Limit(newRPS))
}

// RecordSuccess records a successful request, gradually recovering the
// rate and clearing backoff state after the cooldown period.
func (rl *RateLimiter) RecordSuccess() {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state := rl.backoff
	if state == nil {
		return
	}

	if time.Since(state.LastError) > BackoffCooldownPeriod {
		if rl.limiter != nil && state.ReducedRPS > 0 {
			rl.limiter.SetLimit(rate.Limit(rl.config.RPS))
		}
		rl.backoff = nil
		return
	}

	if state.ConsecutiveErrors > 0 {
		state.ConsecutiveErrors--

		// Recover to half the original rate; full recovery after cooldown.
		if state.ReducedRPS > 0 && state.ConsecutiveErrors == 0 {
			newRPS := rl.config.RPS * 0.5
			if newRPS > state.ReducedRPS {
				state.ReducedRPS = newRPS
				if rl.limiter != nil {
					rl.limiter.SetLimit(rate.Limit(newRPS))
				}
			}
		}
	}
}

// State returns a copy of the current backoff state, or nil when the
// limiter is not backing off.
func (rl *RateLimiter) State() *BackoffState {
	if rl == nil {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.backoff == nil {
		return nil
	}
	copied := *rl.backoff
	return &copied
}

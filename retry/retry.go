// Package retry provides exponential backoff retry logic with jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum delay between attempts.
	MaxBackoff time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// Jitter is the maximum random duration added to each delay.
	// A positive jitter desynchronizes concurrent clients retrying
	// against the same upstream.
	Jitter time.Duration
	// OnRetry, if set, is called before sleeping between attempts with
	// the attempt number that just failed, the computed delay, and the
	// error that caused the retry.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns sensible defaults: three total attempts with
// delays of roughly 2s and 4s (plus up to one second of jitter each).
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		Jitter:         1 * time.Second,
	}
}

// ErrorClassifier determines if an error is retryable.
type ErrorClassifier func(error) bool

// IsRetryable is the default classifier. Context errors are never
// retryable; everything else is.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Do executes fn up to cfg.MaxAttempts times, using the provided
// classifier to decide whether a failure is worth retrying. A
// non-retryable error is returned immediately without further attempts.
// After the final attempt the last error is returned wrapped, so
// errors.Is and errors.As still see the underlying failure.
func Do(ctx context.Context, cfg Config, classifier ErrorClassifier, fn func(context.Context) error) error {
	if classifier == nil {
		classifier = IsRetryable
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !classifier(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := BackoffFor(cfg, attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// BackoffFor returns the delay to sleep after the given failed attempt
// (numbered from 1): InitialBackoff * Multiplier^(attempt-1), capped at
// MaxBackoff, plus a uniformly random jitter in [0, Jitter).
func BackoffFor(cfg Config, attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= cfg.Multiplier
	}
	if max := float64(cfg.MaxBackoff); cfg.MaxBackoff > 0 && backoff > max {
		backoff = max
	}

	d := time.Duration(backoff)
	if cfg.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(cfg.Jitter)))
	}
	return d
}

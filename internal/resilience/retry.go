// Package resilience protects calls to the external model services
// (embedding, chat completion) from transient failures: bounded retries with
// exponential backoff, and a circuit breaker that fails fast while a service
// stays down.
package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig controls backoff behavior for one call site.
type RetryConfig struct {
	// MaxRetries is the number of retry attempts after the initial call.
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry.
	Multiplier float64

	// Jitter randomizes delays to avoid synchronized retry storms.
	Jitter bool
}

// EmbeddingRetryConfig returns the retry policy for embedding calls.
// Query embedding sits on the request path, so retries are few and short;
// anything slower and the caller is better served by the keyword-only
// degradation.
func EmbeddingRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 150 * time.Millisecond,
		MaxDelay:     600 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// RetryWithResult calls fn up to 1+MaxRetries times with exponential backoff.
// Context cancellation aborts immediately, including mid-wait.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var err error
		result, err = fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt >= cfg.MaxRetries {
			break
		}

		wait := delay
		if cfg.Jitter {
			wait = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return result, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

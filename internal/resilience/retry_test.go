package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryWithResult_SucceedsAfterTransientError(t *testing.T) {
	// Given: a call that fails twice then succeeds
	attempts := 0
	fn := func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}

	result, err := RetryWithResult(context.Background(), fastRetryConfig(), fn)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithResult_FailsAfterMaxRetries(t *testing.T) {
	attempts := 0
	fn := func() (string, error) {
		attempts++
		return "", errors.New("persistent")
	}

	_, err := RetryWithResult(context.Background(), fastRetryConfig(), fn)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 3, attempts) // initial call plus two retries
}

func TestRetryWithResult_NoRetryOnSuccess(t *testing.T) {
	attempts := 0
	fn := func() (int, error) {
		attempts++
		return 42, nil
	}

	result, err := RetryWithResult(context.Background(), fastRetryConfig(), fn)

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithResult_CancelledContextAbortsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0

	_, err := RetryWithResult(ctx, fastRetryConfig(), func() (string, error) {
		attempts++
		return "", errors.New("never seen")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestRetryWithResult_CancellationDuringBackoff(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Minute, // would block without cancellation
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := RetryWithResult(ctx, cfg, func() (string, error) {
		return "", errors.New("fail")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

package client

import (
	"context"
	"time"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      5 * time.Second,
	BackoffMultiple: 2.0,
}

// NoRetry makes a single attempt
var NoRetry = RetryConfig{MaxAttempts: 1}

// retry calls fn until it succeeds, returns a permanent error, runs out of
// attempts or ctx is done.
func (rc RetryConfig) retry(ctx context.Context, fn func() (retryable bool, err error)) error {
	attempts := rc.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := rc.InitialBackoff
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		retryable, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * rc.BackoffMultiple)
			if backoff > rc.MaxBackoff {
				backoff = rc.MaxBackoff
			}
		}
	}
	return lastErr
}

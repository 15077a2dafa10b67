package llm

import (
	"context"
	"time"
)

const (
	defaultMaxAttempts    = 3
	defaultBaseDelay      = 500 * time.Millisecond
	defaultAttemptTimeout = 60 * time.Second
)

// doWithRetry runs fn up to maxAttempts times, backing off exponentially
// between attempts. Each attempt gets its own deadline so a hung call
// cannot drain the whole retry budget. Only errors classified retryable
// by IsRetryable are retried; an attempt-local timeout is retryable as
// long as the parent context is still live.
func doWithRetry(ctx context.Context, maxAttempts int, baseDelay, attemptTimeout time.Duration, fn func(ctx context.Context) (string, error)) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		result, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsRetryable(err) || attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", lastErr
}

package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tally-ho/internal/service"
)

var (
	// ErrRateLimit indicates that the provider rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError wraps an error with retry-specific metadata. Wrapping
// with Retryable=false short-circuits the retry loop.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// WithRetry runs operation until it succeeds, the attempts are spent, or
// the context ends. Delays grow exponentially up to opts.MaxDelay; a rate
// limit error jumps straight to the maximum delay.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	opts = withRetryDefaults(opts)

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		var retryable *RetryableError
		if errors.As(lastErr, &retryable) && !retryable.Retryable {
			return lastErr
		}

		if attempt == opts.MaxAttempts {
			break
		}

		delay := backoffDelay(opts, attempt)
		if errors.Is(lastErr, ErrRateLimit) {
			delay = opts.MaxDelay
		}

		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, opts.MaxAttempts, lastErr)
}

func withRetryDefaults(opts service.RetryOptions) service.RetryOptions {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}
	return opts
}

// backoffDelay computes the delay before the given attempt's retry.
func backoffDelay(opts service.RetryOptions, attempt int) time.Duration {
	delay := opts.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * opts.Multiplier)
		if delay >= opts.MaxDelay {
			return opts.MaxDelay
		}
	}
	return delay
}

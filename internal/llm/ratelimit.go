package llm

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// rateLimiter caps outbound provider calls with a token bucket. Tokens
// accrue continuously from elapsed time, so there is no background
// refill goroutine to manage.
type rateLimiter struct {
	lastRefill time.Time
	tokens     float64
	capacity   float64
	perSecond  float64
	mu         sync.Mutex
}

// newRateLimiter creates a limiter allowing the given number of requests
// per minute. Non-positive rates fall back to 60.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}

	return &rateLimiter{
		tokens:     float64(requestsPerMinute),
		capacity:   float64(requestsPerMinute),
		perSecond:  float64(requestsPerMinute) / 60.0,
		lastRefill: time.Now(),
	}
}

// tryAcquire takes one token if the bucket holds at least one.
func (rl *rateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// wait blocks until a token is available or the context ends.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		if rl.tryAcquire() {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-time.After(rl.retryInterval()):
		}
	}
}

// retryInterval estimates the time until the next whole token, bounded
// so cancellation stays responsive.
func (rl *rateLimiter) retryInterval() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	deficit := 1 - rl.tokens
	if deficit <= 0 {
		return 10 * time.Millisecond
	}

	interval := time.Duration(deficit / rl.perSecond * float64(time.Second))
	if interval < 10*time.Millisecond {
		return 10 * time.Millisecond
	}
	if interval > 250*time.Millisecond {
		return 250 * time.Millisecond
	}
	return interval
}

// refillLocked credits tokens for the time since the last refill. Caller
// holds the mutex.
func (rl *rateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens = math.Min(rl.capacity, rl.tokens+elapsed*rl.perSecond)
	rl.lastRefill = now
}

// reset restores the bucket to full capacity.
func (rl *rateLimiter) reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = rl.capacity
	rl.lastRefill = time.Now()
}

// Close exists so the matcher can shut the limiter down alongside the
// cache; the bucket itself holds no background work.
func (rl *rateLimiter) Close() {}

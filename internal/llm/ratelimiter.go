package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter implements a token bucket with exponential backoff on
// provider errors. Every chat call acquires one token.
type RateLimiter struct {
	requestsPerMinute int
	tokens            chan struct{}
	lastRefill        time.Time
	mu                sync.Mutex
	closed            chan struct{}

	// Backoff state
	consecutiveErrors int
	lastErrorTime     time.Time
	backoffDuration   time.Duration
}

// RateLimiterStats is a snapshot of the limiter state.
type RateLimiterStats struct {
	RequestsPerMinute int
	TokensAvailable   int
	ConsecutiveErrors int
	InBackoff         bool
	BackoffRemaining  time.Duration
}

// NewRateLimiter creates a new rate limiter.
// rpm: requests per minute; values <= 0 fall back to 60.
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		rpm = 60
	}

	rl := &RateLimiter{
		requestsPerMinute: rpm,
		tokens:            make(chan struct{}, rpm),
		lastRefill:        time.Now(),
		closed:            make(chan struct{}),
	}

	for i := 0; i < rpm; i++ {
		rl.tokens <- struct{}{}
	}

	go rl.refillLoop()

	return rl
}

// Wait blocks until a token is available or the context is cancelled.
// Returns an error immediately while backoff is active.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.isInBackoff() {
		return fmt.Errorf("rate limited: backoff active for %s", rl.getBackoffRemaining())
	}

	select {
	case <-rl.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire attempts to acquire a token without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	if rl.isInBackoff() {
		return false
	}

	select {
	case <-rl.tokens:
		return true
	default:
		return false
	}
}

// RecordSuccess resets the backoff state after a successful call.
func (rl *RateLimiter) RecordSuccess() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.consecutiveErrors = 0
	rl.backoffDuration = 0
}

// RecordError triggers exponential backoff: 2^n seconds, capped at 300s.
func (rl *RateLimiter) RecordError() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.consecutiveErrors++
	rl.lastErrorTime = time.Now()

	backoff := time.Duration(1<<uint(rl.consecutiveErrors)) * time.Second
	if backoff > 300*time.Second {
		backoff = 300 * time.Second
	}

	rl.backoffDuration = backoff
}

// GetBackoffDuration returns the current backoff duration.
func (rl *RateLimiter) GetBackoffDuration() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.backoffDuration
}

// GetStats returns a snapshot of the limiter state.
func (rl *RateLimiter) GetStats() RateLimiterStats {
	inBackoff := rl.isInBackoff()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	backoffRemaining := time.Duration(0)
	if inBackoff {
		backoffRemaining = rl.backoffDuration - time.Since(rl.lastErrorTime)
	}

	return RateLimiterStats{
		RequestsPerMinute: rl.requestsPerMinute,
		TokensAvailable:   len(rl.tokens),
		ConsecutiveErrors: rl.consecutiveErrors,
		InBackoff:         inBackoff,
		BackoffRemaining:  backoffRemaining,
	}
}

// Close stops the refill goroutine.
func (rl *RateLimiter) Close() {
	select {
	case <-rl.closed:
	default:
		close(rl.closed)
	}
}

func (rl *RateLimiter) isInBackoff() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.backoffDuration == 0 {
		return false
	}

	return time.Since(rl.lastErrorTime) < rl.backoffDuration
}

func (rl *RateLimiter) getBackoffRemaining() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.backoffDuration == 0 {
		return 0
	}

	remaining := rl.backoffDuration - time.Since(rl.lastErrorTime)
	if remaining < 0 {
		return 0
	}

	return remaining
}

func (rl *RateLimiter) refillLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.refillTokens()
		case <-rl.closed:
			return
		}
	}
}

func (rl *RateLimiter) refillTokens() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Drain, then refill to capacity.
	for {
		select {
		case <-rl.tokens:
			continue
		default:
		}
		break
	}

	for i := 0; i < rl.requestsPerMinute; i++ {
		select {
		case rl.tokens <- struct{}{}:
		default:
		}
	}

	rl.lastRefill = time.Now()
}

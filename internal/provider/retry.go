package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetryPolicy selects how delays grow between attempts.
type RetryPolicy int

const (
	// RetryNone disables retries.
	RetryNone RetryPolicy = iota
	// RetryFixedDelay waits the base delay between attempts.
	RetryFixedDelay
	// RetryLinearBackoff waits base*attempt between attempts.
	RetryLinearBackoff
	// RetryExponentialBackoff waits base*2^(attempt-1) between attempts.
	RetryExponentialBackoff
)

// maxBackoff caps any single delay.
const maxBackoff = 32 * time.Second

// ParsePolicy maps a config string to a RetryPolicy.
func ParsePolicy(s string) (RetryPolicy, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return RetryNone, nil
	case "fixed":
		return RetryFixedDelay, nil
	case "linear":
		return RetryLinearBackoff, nil
	case "exponential":
		return RetryExponentialBackoff, nil
	default:
		return RetryNone, fmt.Errorf("unknown retry policy %q", s)
	}
}

// Delay returns the wait before retry number attempt (1-based). It is a pure
// function of (policy, attempt, base); attempt 0 or RetryNone yields 0.
func Delay(policy RetryPolicy, attempt int, base time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	var d time.Duration
	switch policy {
	case RetryFixedDelay:
		d = base
	case RetryLinearBackoff:
		d = base * time.Duration(attempt)
	case RetryExponentialBackoff:
		d = base << uint(attempt-1)
	default:
		return 0
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Retrier wraps external calls with the configured retry policy.
type Retrier struct {
	Policy      RetryPolicy
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do runs fn up to MaxAttempts times, sleeping per the policy between
// attempts. Non-retryable provider errors and context cancellation stop
// immediately. The last error is returned when all attempts fail.
func (r Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 || r.Policy == RetryNone {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(Delay(r.Policy, attempt-1, r.BaseDelay)):
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if perr, ok := lastErr.(*Error); ok && !perr.Retryable {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelay(t *testing.T) {
	base := time.Second
	tests := []struct {
		name    string
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{"none", RetryNone, 1, 0},
		{"none attempt 3", RetryNone, 3, 0},
		{"fixed", RetryFixedDelay, 1, time.Second},
		{"fixed attempt 3", RetryFixedDelay, 3, time.Second},
		{"linear attempt 1", RetryLinearBackoff, 1, time.Second},
		{"linear attempt 3", RetryLinearBackoff, 3, 3 * time.Second},
		{"exponential attempt 1", RetryExponentialBackoff, 1, time.Second},
		{"exponential attempt 4", RetryExponentialBackoff, 4, 8 * time.Second},
		{"exponential caps at max", RetryExponentialBackoff, 10, maxBackoff},
		{"zero attempt", RetryFixedDelay, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delay(tt.policy, tt.attempt, base); got != tt.want {
				t.Errorf("Delay(%v, %d) = %v, want %v", tt.policy, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for s, want := range map[string]RetryPolicy{
		"none": RetryNone, "fixed": RetryFixedDelay,
		"linear": RetryLinearBackoff, "exponential": RetryExponentialBackoff,
		"": RetryNone,
	} {
		got, err := ParsePolicy(s)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParsePolicy("bogus"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestRetrierStopsAfterMaxAttempts(t *testing.T) {
	r := Retrier{Policy: RetryFixedDelay, MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &Error{Provider: "test", Op: "op", Err: errors.New("boom"), Retryable: true}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRetrierStopsOnNonRetryable(t *testing.T) {
	r := Retrier{Policy: RetryFixedDelay, MaxAttempts: 5, BaseDelay: time.Millisecond}
	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &Error{Provider: "test", Op: "op", Err: errors.New("bad auth"), Retryable: false}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error should stop after 1 attempt, got %d", calls)
	}
}

func TestRetrierSucceedsAfterFailure(t *testing.T) {
	r := Retrier{Policy: RetryLinearBackoff, MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return &Error{Provider: "test", Op: "op", Err: errors.New("transient"), Retryable: true}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

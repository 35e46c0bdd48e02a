package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Mark(errors.New("busy"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("bad request")
	err := fastPolicy(5).Do(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do() error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	var retries []int
	p := fastPolicy(4)
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		retries = append(retries, attempt)
		if wait > p.MaxDelay {
			t.Errorf("wait %v exceeds ceiling %v", wait, p.MaxDelay)
		}
	}
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return Mark(fmt.Errorf("attempt %d", calls))
	})
	if err == nil || err.Error() != "attempt 4" {
		t.Fatalf("Do() error = %v, want attempt 4", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if len(retries) != 3 {
		t.Errorf("OnRetry called %d times, want 3", len(retries))
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 10, Delay: time.Hour}
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return Mark(errors.New("busy"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

type tempErr struct{}

func (tempErr) Error() string   { return "temporary" }
func (tempErr) Temporary() bool { return true }

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), false},
		{"marked", Mark(errors.New("x")), true},
		{"wrapped marked", fmt.Errorf("outer: %w", Mark(errors.New("x"))), true},
		{"temporary interface", tempErr{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	p := Policy{}.WithDefaults()
	if p.Attempts != DefaultAttempts || p.Delay != DefaultDelay || p.MaxDelay != DefaultMaxDelay {
		t.Errorf("WithDefaults() = %+v", p)
	}
	p = Policy{Delay: time.Minute, MaxDelay: time.Second}.WithDefaults()
	if p.MaxDelay != time.Minute {
		t.Errorf("MaxDelay = %v, want ceiling raised to delay", p.MaxDelay)
	}
}

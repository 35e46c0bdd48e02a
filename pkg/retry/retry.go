// Package retry runs operations that may fail transiently.
//
// Only errors marked as retryable are retried: errors wrapped with
// [RetryableError], or errors anywhere in the chain that implement
// Temporary() bool and report true. Everything else is returned on the first
// failure, so a quality problem or a malformed response never burns the
// transient budget.
package retry

import (
	"context"
	"errors"
	"time"
)

// Defaults used by [Policy.WithDefaults].
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
	DefaultMaxDelay = 30 * time.Second
)

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Temporary marks the wrapped error as worth retrying.
func (e *RetryableError) Temporary() bool { return true }

// Mark wraps err as a [RetryableError]. A nil err stays nil.
func Mark(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Retryable reports whether err should trigger another attempt.
func Retryable(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// Policy bounds a retry loop. The delay doubles after every failed attempt
// and never exceeds MaxDelay.
type Policy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration

	// OnRetry, when set, is called before each wait with the 1-based number
	// of the attempt that failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// WithDefaults returns a copy of p with zero fields set to package defaults.
func (p Policy) WithDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.Delay {
		p.MaxDelay = p.Delay
	}
	return p
}

// Do executes fn up to p.Attempts times.
// Returns nil on the first success, the first non-retryable error, the last
// error once the budget is spent, or ctx.Err() if cancelled while waiting.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx); err == nil {
			return nil
		} else if lastErr = err; !Retryable(err) {
			return err
		}

		if i < attempts-1 {
			if p.OnRetry != nil {
				p.OnRetry(i+1, lastErr, delay)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
	}
	return lastErr
}

// Do is a convenience wrapper around [Policy.Do] with package defaults.
func Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return Policy{}.WithDefaults().Do(ctx, fn)
}

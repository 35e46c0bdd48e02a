package transform

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// rpsLimiter is a token bucket allowing at most rps calls per second with a
// burst capacity. A nil limiter never blocks.
type rpsLimiter struct {
	tokens   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	l := &rpsLimiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}

	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
					// bucket full
				}
			case <-l.stopCh:
				return
			}
		}
	}()
	return l
}

// Acquire blocks until a token is available or ctx is done.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

// Stop terminates the refill goroutine. It is safe to call more than once.
func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// WithRateLimit throttles calls to rps per second with the given burst.
// rps <= 0 disables limiting. Close the resulting Capability to stop the
// refill goroutine.
func WithRateLimit(rps float64, burst int) Middleware {
	return func(next Capability) Capability {
		return &rateLimited{wrapped: wrapped{next}, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	wrapped
	rl *rpsLimiter
}

func (c *rateLimited) Invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.Invoke(ctx, instruction, payload)
}

func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.wrapped.Close()
}

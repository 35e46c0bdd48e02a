package transform

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uimigrate/pkg/cache"
	"github.com/matzehuels/uimigrate/pkg/observability"
	"github.com/matzehuels/uimigrate/pkg/retry"
)

// wrapped forwards Model and Close to the next Capability.
type wrapped struct{ next Capability }

func (w wrapped) Model() string { return ModelOf(w.next) }
func (w wrapped) Close() error  { return Close(w.next) }

// WithRetry retries transient failures under policy. Non-transient errors
// return immediately. The policy's zero fields take package defaults.
func WithRetry(policy retry.Policy) Middleware {
	policy = policy.WithDefaults()
	return func(next Capability) Capability {
		return &retrying{wrapped: wrapped{next}, policy: policy}
	}
}

type retrying struct {
	wrapped
	policy retry.Policy
}

func (c *retrying) Invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		raw, err := c.next.Invoke(ctx, instruction, payload)
		if err != nil {
			return err
		}
		out = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// cacheKeyType labels transform entries in cache hooks.
const cacheKeyType = "transform"

// WithCache stores successful results keyed by model, instruction and
// payload. Cache read and write failures are ignored; the call goes through.
func WithCache(store cache.Cache, keyer cache.Keyer, ttl time.Duration) Middleware {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return func(next Capability) Capability {
		return &cached{wrapped: wrapped{next}, store: store, keyer: keyer, ttl: ttl}
	}
}

type cached struct {
	wrapped
	store cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

func (c *cached) Invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error) {
	hooks := observability.Cache()
	key := c.keyer.TransformKey(c.Model(), instruction, payload)

	if data, ok, err := c.store.Get(ctx, key); err == nil && ok && json.Valid(data) {
		hooks.OnCacheHit(ctx, cacheKeyType)
		return json.RawMessage(data), nil
	}
	hooks.OnCacheMiss(ctx, cacheKeyType)

	raw, err := c.next.Invoke(ctx, instruction, payload)
	if err != nil {
		return nil, err
	}
	if c.store.Set(ctx, key, raw, c.ttl) == nil {
		hooks.OnCacheSet(ctx, cacheKeyType, len(raw))
	}
	return raw, nil
}

// WithLogging logs every call at debug level and failures at warn level.
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Capability) Capability {
		return &logged{wrapped: wrapped{next}, logger: logger}
	}
}

type logged struct {
	wrapped
	logger *log.Logger
}

func (c *logged) Invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error) {
	start := time.Now()
	name := label(instruction)
	c.logger.Debug("transform request", "instruction", name, "bytes", len(payload))
	raw, err := c.next.Invoke(ctx, instruction, payload)
	if err != nil {
		c.logger.Warn("transform failed", "instruction", name, "transient", IsTransient(err), "err", err)
		return nil, err
	}
	c.logger.Debug("transform response", "instruction", name, "bytes", len(raw), "elapsed", time.Since(start).Round(time.Millisecond))
	return raw, nil
}

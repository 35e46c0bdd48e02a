// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about unit migration, phase attempts, transform calls, and
// cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so there are no import cycles.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetTransformHooks(&myTransformHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnPhaseAttempt(ctx, unit, "analysis", 1)
//	// ... run the phase ...
//	observability.Pipeline().OnPhaseComplete(ctx, unit, "analysis", 1, 91.5, true, elapsed)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the migration pipeline.
type PipelineHooks interface {
	// Unit events
	OnUnitStart(ctx context.Context, unit string)
	OnUnitComplete(ctx context.Context, unit, status string, duration time.Duration, err error)

	// Phase events. attempt is 1-based.
	OnPhaseAttempt(ctx context.Context, unit, phase string, attempt int)
	OnPhaseComplete(ctx context.Context, unit, phase string, attempt int, successFactor float64, passed bool, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Transform Hooks
// =============================================================================

// TransformHooks receives events from calls to the transform service.
type TransformHooks interface {
	// OnInvoke records an outgoing call.
	OnInvoke(ctx context.Context, model, instruction string)

	// OnResponse records a successful response of size bytes.
	OnResponse(ctx context.Context, model, instruction string, size int, duration time.Duration)

	// OnError records a failed call (network failure, quota, malformed output).
	OnError(ctx context.Context, model, instruction string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnUnitStart(context.Context, string)                                {}
func (NoopPipelineHooks) OnUnitComplete(context.Context, string, string, time.Duration, error) {}
func (NoopPipelineHooks) OnPhaseAttempt(context.Context, string, string, int)                {}
func (NoopPipelineHooks) OnPhaseComplete(context.Context, string, string, int, float64, bool, time.Duration) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopTransformHooks is a no-op implementation of TransformHooks.
type NoopTransformHooks struct{}

func (NoopTransformHooks) OnInvoke(context.Context, string, string)                      {}
func (NoopTransformHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopTransformHooks) OnError(context.Context, string, string, error)                {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks  PipelineHooks  = NoopPipelineHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	transformHooks TransformHooks = NoopTransformHooks{}
	hooksMu        sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetTransformHooks registers custom transform hooks.
func SetTransformHooks(h TransformHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		transformHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Transform returns the registered transform hooks.
func Transform() TransformHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return transformHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	transformHooks = NoopTransformHooks{}
}

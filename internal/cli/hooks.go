package cli

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/matzehuels/uimigrate/pkg/observability"
)

// consoleHooks prints scored phase attempts as they complete. Output is
// suppressed when units run concurrently, since lines would interleave.
type consoleHooks struct {
	observability.NoopPipelineHooks
	showPhases bool
}

func (h *consoleHooks) OnPhaseComplete(_ context.Context, _ string, phase string, attempt int, sf float64, passed bool, _ time.Duration) {
	if h.showPhases {
		printPhase(phase, attempt, sf, passed)
	}
}

// cacheStats counts transform cache traffic for the run summary.
type cacheStats struct {
	observability.NoopCacheHooks
	hits   atomic.Int64
	misses atomic.Int64
}

func (s *cacheStats) OnCacheHit(context.Context, string)  { s.hits.Add(1) }
func (s *cacheStats) OnCacheMiss(context.Context, string) { s.misses.Add(1) }

// transformStats counts outgoing transform calls and failures.
type transformStats struct {
	observability.NoopTransformHooks
	calls  atomic.Int64
	errors atomic.Int64
}

func (s *transformStats) OnInvoke(context.Context, string, string) { s.calls.Add(1) }
func (s *transformStats) OnError(context.Context, string, string, error) {
	s.errors.Add(1)
}

// installHooks registers console and counting hooks for one command and
// returns a function restoring the defaults.
func installHooks(showPhases bool) (*cacheStats, *transformStats, func()) {
	cs, ts := &cacheStats{}, &transformStats{}
	observability.SetPipelineHooks(&consoleHooks{showPhases: showPhases})
	observability.SetCacheHooks(cs)
	observability.SetTransformHooks(ts)
	return cs, ts, observability.Reset
}

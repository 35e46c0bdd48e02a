// Package batch drives a migration over many units.
//
// A [Runner] seeds the ledger from a file or a directory scan, then drains
// the queue. Before a unit enters the pipeline its dependencies are resolved
// and appended to the queue, so units discovered mid-run are migrated too.
// The ledger is persisted after every unit; an interrupted run picks up where
// it stopped.
//
// # Failure handling
//
// No unit can abort a batch. A phase-fatal pipeline error, an unreadable
// file or a halted phase is recorded as a failed ledger entry and the loop
// moves on. Cancelling the context stops dispatching new units; units that
// were in flight go back to the head of the queue.
package batch

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/uimigrate/pkg/ledger"
	"github.com/matzehuels/uimigrate/pkg/pipeline"
	"github.com/matzehuels/uimigrate/pkg/scan"
)

// SkipReasonExternal is recorded for units matching the external policy.
const SkipReasonExternal = "external resource"

// Resolver discovers the dependencies of a unit.
type Resolver interface {
	// Flatten returns every non-external dependency reachable from unit.
	Flatten(ctx context.Context, unit string) ([]string, error)

	// IsExternal reports whether unit belongs to a framework or vendored
	// library and must not be migrated.
	IsExternal(unit string) bool
}

// Pipeline migrates one unit.
type Pipeline interface {
	Run(ctx context.Context, unit string, input []byte) (*pipeline.Result, error)
}

// Runner migrates every unit reachable from a source.
type Runner struct {
	Ledger   *ledger.Ledger
	Store    ledger.Store // nil disables persistence
	Resolver Resolver
	Pipeline Pipeline
	Scan     scan.Options
	Workers  int // units processed concurrently (default 1)
	Logger   *log.Logger

	// Progress, when set, is called after each unit reaches a disposition.
	Progress func(UnitReport)

	saveMu sync.Mutex
}

// UnitReport is the disposition of one unit within a run.
type UnitReport struct {
	Path         string        `json:"path"`
	Status       string        `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	Dependencies int           `json:"dependencies"`
	Duration     time.Duration `json:"duration"`
}

// Summary describes a completed or interrupted run.
type Summary struct {
	RunID       string            `json:"run_id"`
	Seeded      int               `json:"seeded"`
	Enqueued    int               `json:"enqueued"`
	Skipped     int               `json:"skipped"`
	Units       []UnitReport      `json:"units"`
	Statistics  ledger.Statistics `json:"statistics"`
	Duration    time.Duration     `json:"duration"`
	Interrupted bool              `json:"interrupted"`
}

// Count returns how many units in the run ended with status.
func (s *Summary) Count(status string) int {
	n := 0
	for _, u := range s.Units {
		if u.Status == status {
			n++
		}
	}
	return n
}

// StatusSkipped marks a unit dropped at dispatch time.
const StatusSkipped = "skipped"

type run struct {
	r        *Runner
	mu       sync.Mutex
	summary  *Summary
	active   atomic.Int64
	wake     chan struct{}
	enqueued atomic.Int64
}

// Run seeds the ledger from source and processes the queue until it is
// empty or ctx is cancelled. An empty source resumes the persisted queue
// without seeding.
//
// The returned error is non-nil only when seeding fails or the ledger cannot
// be persisted; per-unit failures are reported in the Summary. On
// cancellation the summary is returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context, source string) (*Summary, error) {
	if r.Ledger == nil || r.Resolver == nil || r.Pipeline == nil {
		return nil, fmt.Errorf("batch runner requires a ledger, a resolver and a pipeline")
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	start := time.Now()
	st := &run{
		r:       r,
		summary: &Summary{RunID: r.Ledger.RunID()},
		wake:    make(chan struct{}, 1),
	}

	if source != "" {
		if err := st.seed(source); err != nil {
			return nil, err
		}
		if err := r.persist(ctx); err != nil {
			return nil, err
		}
	}
	r.Logger.Info("batch started", "run", st.summary.RunID, "queued", r.Ledger.Len(), "workers", workers)

	// gctx is cancelled when a worker cannot persist the ledger. A slot is
	// taken before each dequeue so no unit leaves the queue while every
	// worker is busy.
	g, gctx := errgroup.WithContext(ctx)
	slots := make(chan struct{}, workers)
dispatch:
	for {
		select {
		case slots <- struct{}{}:
		case <-gctx.Done():
			break dispatch
		}
		if gctx.Err() != nil {
			break
		}
		path, ok := r.Ledger.Dequeue()
		if !ok {
			<-slots
			if st.active.Load() == 0 && r.Ledger.Len() == 0 {
				break
			}
			select {
			case <-st.wake:
			case <-gctx.Done():
			}
			continue
		}
		st.active.Add(1)
		g.Go(func() error {
			defer func() {
				<-slots
				st.active.Add(-1)
				select {
				case st.wake <- struct{}{}:
				default:
				}
			}()
			return st.process(gctx, path)
		})
	}
	werr := g.Wait()

	st.summary.Enqueued += int(st.enqueued.Load())
	st.summary.Duration = time.Since(start)
	st.summary.Interrupted = ctx.Err() != nil
	if err := r.persist(context.WithoutCancel(ctx)); err != nil {
		return st.summary, err
	}
	st.summary.Statistics = r.Ledger.Stats()
	sort.SliceStable(st.summary.Units, func(i, j int) bool { return st.summary.Units[i].Path < st.summary.Units[j].Path })

	if werr != nil {
		return st.summary, werr
	}
	if st.summary.Interrupted {
		r.Logger.Warn("batch interrupted", "remaining", st.summary.Statistics.RemainingInQueue)
		return st.summary, ctx.Err()
	}
	r.Logger.Info("batch complete",
		"processed", st.summary.Statistics.TotalProcessed,
		"review_needed", st.summary.Statistics.TotalReviewNeeded,
		"failed", st.summary.Statistics.TotalFailed,
		"duration", st.summary.Duration.Round(time.Millisecond))
	return st.summary, nil
}

// seed enqueues the units found at source, skipping external ones.
func (st *run) seed(source string) error {
	r := st.r
	units, err := scan.Sources(source, r.Scan)
	if err != nil {
		return err
	}
	var keep []string
	for _, u := range units {
		if r.Resolver.IsExternal(u) {
			r.Ledger.MarkSkipped(u, SkipReasonExternal)
			st.summary.Skipped++
			r.Logger.Debug("skipping external unit", "unit", u)
			continue
		}
		keep = append(keep, u)
	}
	n := r.Ledger.Enqueue(keep...)
	st.summary.Seeded = n
	st.summary.Enqueued = n
	r.Logger.Debug("seeded queue", "source", source, "found", len(units), "enqueued", n)
	return nil
}

// process migrates one dequeued unit. It only returns an error when the
// ledger cannot be persisted.
func (st *run) process(ctx context.Context, path string) error {
	r := st.r
	start := time.Now()
	report := UnitReport{Path: path}

	switch {
	case r.Ledger.IsProcessed(path):
		r.Ledger.Drop(path)
		return nil
	case r.Resolver.IsExternal(path):
		r.Ledger.MarkSkipped(path, SkipReasonExternal)
		report.Status, report.Reason = StatusSkipped, SkipReasonExternal
		return st.finish(ctx, report, start)
	}

	deps, err := r.Resolver.Flatten(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			r.Ledger.Release(path)
			return nil
		}
		r.Logger.Warn("dependency resolution failed", "unit", path, "error", err)
		deps = nil
	}
	report.Dependencies = len(deps)
	if added := r.Ledger.Enqueue(deps...); added > 0 {
		st.enqueued.Add(int64(added))
		r.Logger.Debug("queued dependencies", "unit", path, "added", added)
	}

	input, err := os.ReadFile(path)
	if err != nil {
		r.Ledger.MarkFailed(path, fmt.Sprintf("read unit: %v", err))
		report.Status, report.Reason = pipeline.UnitFailed, err.Error()
		return st.finish(ctx, report, start)
	}

	res, err := r.Pipeline.Run(ctx, path, input)
	if err != nil && ctx.Err() != nil {
		r.Ledger.Release(path)
		return nil
	}
	switch {
	case res == nil:
		reason := "pipeline returned no result"
		if err != nil {
			reason = err.Error()
		}
		r.Ledger.MarkFailed(path, reason)
		report.Status, report.Reason = pipeline.UnitFailed, reason
	case res.Status == pipeline.UnitFailed:
		reason := res.Reason
		if reason == "" && err != nil {
			reason = err.Error()
		}
		r.Ledger.MarkFailed(path, reason)
		report.Status, report.Reason = res.Status, reason
	case res.Status == pipeline.UnitReviewNeeded:
		r.Ledger.MarkSuccess(path, ledger.StatusReviewNeeded, res.Artifact, deps)
		report.Status, report.Reason = res.Status, res.Reason
	default:
		r.Ledger.MarkSuccess(path, ledger.StatusSuccess, res.Artifact, deps)
		report.Status = res.Status
	}
	return st.finish(ctx, report, start)
}

func (st *run) finish(ctx context.Context, report UnitReport, start time.Time) error {
	r := st.r
	report.Duration = time.Since(start)

	st.mu.Lock()
	st.summary.Units = append(st.summary.Units, report)
	if report.Status == StatusSkipped {
		st.summary.Skipped++
	}
	st.mu.Unlock()

	switch report.Status {
	case pipeline.UnitFailed:
		r.Logger.Error("unit failed", "unit", report.Path, "reason", report.Reason)
	case pipeline.UnitReviewNeeded:
		r.Logger.Warn("unit needs review", "unit", report.Path, "reason", report.Reason)
	default:
		r.Logger.Info("unit done", "unit", report.Path, "status", report.Status, "duration", report.Duration.Round(time.Millisecond))
	}
	if r.Progress != nil {
		r.Progress(report)
	}
	return r.persist(context.WithoutCancel(ctx))
}

// persist saves a ledger snapshot. Saves are serialized so an older snapshot
// never overwrites a newer one.
func (r *Runner) persist(ctx context.Context) error {
	if r.Store == nil {
		return nil
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	if err := ledger.Save(ctx, r.Store, r.Ledger); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uimigrate/pkg/errors"
	"github.com/matzehuels/uimigrate/pkg/observability"
)

// Unit status values reported by Runner.Run.
const (
	// UnitSuccess means every phase was accepted, or best-effort
	// continuation carried the unit to the end.
	UnitSuccess = "success"

	// UnitReviewNeeded means an advisory phase scored below threshold.
	UnitReviewNeeded = "review_needed"

	// UnitFailed means the unit halted on an exhausted phase or hit a
	// phase-fatal error.
	UnitFailed = "failed"
)

// Result is the outcome of running one unit through every phase.
type Result struct {
	Unit     string        `json:"unit"`
	Status   string        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Outcomes []*Outcome    `json:"outcomes"`
	Log      []Attempt     `json:"execution_log"`
	Duration time.Duration `json:"duration"`

	// Artifact is the last artifact produced.
	Artifact json.RawMessage `json:"artifact,omitempty"`
}

// Outcome returns the outcome of phase, or nil when it did not run.
func (r *Result) Outcome(phase Phase) *Outcome {
	for _, o := range r.Outcomes {
		if o.Phase == phase {
			return o
		}
	}
	return nil
}

// Runner chains stages under a shared scorer and options.
//
// The Runner holds no per-unit state; History is the only shared mutable
// state and is safe for concurrent use. Multiple goroutines can call Run on
// the same Runner.
type Runner struct {
	Stages  []Stage
	Scorer  Scorer
	Options Options
	History *History
	Logger  *log.Logger
}

// NewRunner validates opts and returns a runner for stages, executed in the
// given order. A nil logger uses log.Default().
func NewRunner(stages []Stage, scorer Scorer, opts Options, logger *log.Logger) (*Runner, error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	if scorer == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "pipeline scorer is nil")
	}
	seen := make(map[Phase]bool, len(stages))
	for _, s := range stages {
		if seen[s.Phase()] {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "duplicate stage for phase %q", s.Phase())
		}
		seen[s.Phase()] = true
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Stages:  stages,
		Scorer:  scorer,
		Options: opts,
		History: NewHistory(),
		Logger:  logger,
	}, nil
}

// Run takes input through every stage. Each stage receives the previous
// stage's artifact; the first stage receives input.
//
// A quality shortfall is not an error: the returned Result carries the
// status and reason. A non-nil error means a phase-fatal failure; the
// partial Result is returned alongside it.
func (r *Runner) Run(ctx context.Context, unit string, input []byte) (*Result, error) {
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnUnitStart(ctx, unit)

	res := &Result{Unit: unit, Status: UnitSuccess}
	finish := func(err error) (*Result, error) {
		res.Duration = time.Since(start)
		hooks.OnUnitComplete(ctx, unit, res.Status, res.Duration, err)
		return res, err
	}

	next := input
	for _, stage := range r.Stages {
		phase := stage.Phase()
		policy := r.Options.Policy(phase)
		m := &Machine{
			Stage:     stage,
			Scorer:    r.Scorer,
			Policy:    policy,
			Threshold: r.Options.Threshold,
			History:   r.History,
			Logger:    r.Logger,
			Unit:      unit,
		}

		o, err := m.Run(ctx, next)
		res.Outcomes = append(res.Outcomes, o)
		res.Log = append(res.Log, o.Log...)
		if err != nil {
			res.Status = UnitFailed
			res.Reason = err.Error()
			r.Logger.Error("phase failed", "unit", unit, "phase", phase, "error", err)
			return finish(err)
		}
		res.Artifact = o.Artifact
		next = o.Artifact

		if o.Passed() {
			continue
		}
		score := o.Validation.SuccessFactor
		switch {
		case policy.Advisory:
			res.Status = UnitReviewNeeded
			res.Reason = fmt.Sprintf("%s: advisory score %.2f below threshold %g", phase, score, r.Options.Threshold)
			r.Logger.Warn("advisory phase below threshold; output kept", "unit", unit, "phase", phase, "score", score)
		case r.Options.ProceedOnExhausted:
			r.Logger.Warn("phase exhausted, proceeding with best effort", "unit", unit, "phase", phase, "score", score)
		default:
			res.Status = UnitFailed
			res.Reason = fmt.Sprintf("%s: success factor %.2f below threshold %g", phase, score, r.Options.Threshold)
			r.Logger.Warn("halting unit", "unit", unit, "phase", phase, "score", score)
			return finish(nil)
		}
	}

	r.Logger.Info("unit complete", "unit", unit, "status", res.Status, "duration", time.Since(start))
	return finish(nil)
}

package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uimigrate/pkg/errors"
	"github.com/matzehuels/uimigrate/pkg/observability"
)

// Stage produces and refines the artifact of one phase.
type Stage interface {
	// Phase identifies the stage.
	Phase() Phase

	// Execute builds a fresh artifact from the phase input.
	Execute(ctx context.Context, input []byte) (json.RawMessage, error)

	// Refine builds the next artifact from the previous one and the
	// feedback its validation produced.
	Refine(ctx context.Context, artifact json.RawMessage, fb Feedback) (json.RawMessage, error)
}

// Scorer grades an artifact against the criteria of its phase.
type Scorer interface {
	Score(ctx context.Context, phase Phase, artifact json.RawMessage) (Scores, error)
}

// Attempt status values recorded in the execution log.
const (
	StatusPassed          = "passed"
	StatusNeedsRefinement = "needs_refinement"
	StatusExhausted       = "exhausted"
	StatusAdvisoryFailed  = "advisory_failed"
)

// Attempt is one execution log entry.
type Attempt struct {
	Phase         Phase   `json:"phase"`
	Attempt       int     `json:"attempt"`
	Status        string  `json:"status"`
	SuccessFactor float64 `json:"success_factor"`
}

// Outcome is the terminal result of a phase.
type Outcome struct {
	Phase      Phase           `json:"phase"`
	State      State           `json:"state"`
	Artifact   json.RawMessage `json:"artifact,omitempty"`
	Validation *Validation     `json:"validation,omitempty"`
	Attempts   int             `json:"attempts"`
	Advisory   bool            `json:"advisory,omitempty"`
	Trace      []State         `json:"trace"`
	Log        []Attempt       `json:"log"`
	Duration   time.Duration   `json:"duration"`
}

// Passed reports whether the phase was accepted.
func (o *Outcome) Passed() bool {
	return o.State == StateAccepted
}

// Machine runs a single phase to a terminal state.
type Machine struct {
	Stage     Stage
	Scorer    Scorer
	Policy    Policy
	Threshold float64
	History   *History
	Logger    *log.Logger

	// Unit labels hooks and log lines.
	Unit string
}

func (m *Machine) transition(o *Outcome, s State) {
	o.State = s
	o.Trace = append(o.Trace, s)
}

// Run drives the phase from Pending to Accepted or Exhausted. Any error
// returned by the stage or the scorer is phase-fatal: Run stops and returns
// the partial outcome together with an ErrCodePhaseFatal error.
func (m *Machine) Run(ctx context.Context, input []byte) (*Outcome, error) {
	phase := m.Stage.Phase()
	logger := m.Logger
	if logger == nil {
		logger = log.Default()
	}
	maxAttempts := m.Policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	hooks := observability.Pipeline()
	start := time.Now()

	o := &Outcome{Phase: phase, Advisory: m.Policy.Advisory}
	m.transition(o, StatePending)
	defer func() { o.Duration = time.Since(start) }()

	var fb Feedback
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		o.Attempts = attempt
		m.transition(o, StateExecuting)
		hooks.OnPhaseAttempt(ctx, m.Unit, string(phase), attempt)
		attemptStart := time.Now()

		var (
			artifact json.RawMessage
			err      error
		)
		if attempt == 1 {
			artifact, err = m.Stage.Execute(ctx, input)
		} else {
			artifact, err = m.Stage.Refine(ctx, o.Artifact, fb)
		}
		if err != nil {
			return o, errors.Wrap(errors.ErrCodePhaseFatal, err, "%s attempt %d", phase, attempt)
		}
		o.Artifact = artifact

		m.transition(o, StateScoring)
		scores, err := m.Scorer.Score(ctx, phase, artifact)
		if err != nil {
			return o, errors.Wrap(errors.ErrCodePhaseFatal, err, "%s scoring attempt %d", phase, attempt)
		}
		v := Evaluate(phase, attempt, scores, m.Policy.Weights, m.Threshold)
		o.Validation = &v
		if m.History != nil {
			m.History.Append(v)
		}
		hooks.OnPhaseComplete(ctx, m.Unit, string(phase), attempt, v.SuccessFactor, v.Passed, time.Since(attemptStart))

		switch {
		case v.Passed:
			o.Log = append(o.Log, Attempt{phase, attempt, StatusPassed, v.SuccessFactor})
			m.transition(o, StateAccepted)
			logger.Info("phase accepted", "unit", m.Unit, "phase", phase, "attempt", attempt, "score", v.SuccessFactor)
			return o, nil

		case attempt == maxAttempts:
			status := StatusExhausted
			if m.Policy.Advisory {
				status = StatusAdvisoryFailed
			}
			o.Log = append(o.Log, Attempt{phase, attempt, status, v.SuccessFactor})
			m.transition(o, StateExhausted)
			logger.Warn("phase below threshold",
				"unit", m.Unit,
				"phase", phase,
				"attempts", attempt,
				"score", v.SuccessFactor,
				"threshold", m.Threshold)
			return o, nil
		}

		o.Log = append(o.Log, Attempt{phase, attempt, StatusNeedsRefinement, v.SuccessFactor})
		m.transition(o, StateRefining)
		fb = NewFeedback(v)
		logger.Debug("refining phase",
			"unit", m.Unit,
			"phase", phase,
			"attempt", attempt,
			"score", v.SuccessFactor,
			"issues", len(fb.Issues))
	}
	// maxAttempts >= 1 guarantees a return inside the loop.
	return o, nil
}

// Package pipeline drives a unit through the quality-gated migration phases.
//
// Every phase runs as a small state machine:
//
//	Pending → Executing → Scoring → {Accepted, Refining, Exhausted}
//
// Refining loops back to Executing with the previous artifact plus structured
// feedback (issues, recommendations and the criteria that fell short). A phase
// is Accepted once its weighted success factor reaches the threshold and
// Exhausted when its attempt budget runs out first. Exhausted is a soft
// outcome: the artifact is still returned, tagged as below threshold.
//
// # Architecture
//
// The [Runner] chains the phases in order:
//
//  1. Analysis: extract a blueprint from the legacy source
//  2. Conversion: generate target framework code from the blueprint
//  3. Storage: write the code to disk and score the placement (advisory)
//
// Each phase's artifact is handed to the next phase by value. Whether a run
// continues past an Exhausted phase is controlled by
// [Options.ProceedOnExhausted]; advisory phases never halt a run.
//
// # Retry Budgets
//
// Two counters are tracked independently. Quality attempts are counted here
// (see [Options.MaxAttempts]). Transient infrastructure failures are retried
// inside the transform capability (see transform.WithRetry) and never consume
// a quality attempt; an error that escapes a stage is phase-fatal.
//
// # Usage
//
//	runner, err := pipeline.NewRunner(stages, scorer, pipeline.Options{}, logger)
//	if err != nil {
//	    return err
//	}
//	result, err := runner.Run(ctx, unitPath, source)
//	if err != nil {
//	    // phase-fatal: record the unit as failed and move on
//	}
//	fmt.Println(result.Status, result.Reason)
package pipeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/matzehuels/uimigrate/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultThreshold is the success factor (0-100) a phase must reach.
	DefaultThreshold = 85.0

	// DefaultMaxAttempts is the quality attempt budget per phase.
	DefaultMaxAttempts = 3

	// weightTolerance is how far a weight table may drift from 1.0.
	weightTolerance = 1e-6

	// passEpsilon absorbs float noise when comparing against the threshold.
	passEpsilon = 1e-9
)

// Phase identifies one stage of the migration pipeline.
type Phase string

const (
	PhaseAnalysis   Phase = "analysis"
	PhaseConversion Phase = "conversion"
	PhaseStorage    Phase = "storage"
)

// Phases returns the phases in execution order.
func Phases() []Phase {
	return []Phase{PhaseAnalysis, PhaseConversion, PhaseStorage}
}

// State is a phase state machine state.
type State string

const (
	StatePending   State = "pending"
	StateExecuting State = "executing"
	StateScoring   State = "scoring"
	StateAccepted  State = "accepted"
	StateRefining  State = "refining"
	StateExhausted State = "exhausted"
)

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateExhausted
}

// Sentinel errors.
var (
	ErrInvalidWeights = errors.New(errors.ErrCodeInvalidConfig, "criterion weights must be non-negative and sum to 1")
	ErrNoStages       = errors.New(errors.ErrCodeInvalidConfig, "pipeline has no stages")
)

// =============================================================================
// Weights
// =============================================================================

// Weights maps a scoring criterion to its share of the success factor.
type Weights map[string]float64

// Validate checks that the table is non-empty, every weight is non-negative
// and the weights sum to 1.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return ErrInvalidWeights
	}
	var sum float64
	for _, v := range w {
		if v < 0 || math.IsNaN(v) {
			return ErrInvalidWeights
		}
		sum += v
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w (sum %.4f)", ErrInvalidWeights, sum)
	}
	return nil
}

// Criteria returns the criterion names in sorted order.
func (w Weights) Criteria() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Composite computes the weighted success factor. Criteria missing from
// scores count as 0; scores are clamped to 0-100.
func (w Weights) Composite(scores map[string]float64) float64 {
	var total float64
	for criterion, weight := range w {
		total += clamp(scores[criterion]) * weight
	}
	return total
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// Passes reports whether successFactor meets threshold. The boundary is
// inclusive: a success factor equal to the threshold passes.
func Passes(successFactor, threshold float64) bool {
	return successFactor+passEpsilon >= threshold
}

func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// DefaultWeights returns a copy of the built-in criterion table for phase.
func DefaultWeights(phase Phase) Weights {
	switch phase {
	case PhaseAnalysis:
		return Weights{
			"model_extraction":   0.25,
			"store_extraction":   0.25,
			"columns_extraction": 0.25,
			"logic_capture":      0.25,
		}
	case PhaseConversion:
		return Weights{
			"proper_typing":       0.2,
			"error_handling":      0.2,
			"component_structure": 0.2,
			"service_design":      0.2,
			"angular_standards":   0.2,
		}
	case PhaseStorage:
		return Weights{
			"directory_structure": 0.33,
			"file_integrity":      0.33,
			"naming_conventions":  0.34,
		}
	}
	return nil
}

// =============================================================================
// Options
// =============================================================================

// Policy is the per-phase configuration.
type Policy struct {
	// Weights is the criterion table used to compute the success factor.
	Weights Weights `json:"weights"`

	// MaxAttempts overrides Options.MaxAttempts when positive.
	MaxAttempts int `json:"max_attempts,omitempty"`

	// Advisory phases are scored but never halt the run. A below-threshold
	// advisory score marks the unit for review instead.
	Advisory bool `json:"advisory,omitempty"`
}

// DefaultPolicies returns the built-in policies. Storage is scored once and
// is advisory.
func DefaultPolicies() map[Phase]Policy {
	return map[Phase]Policy{
		PhaseAnalysis:   {Weights: DefaultWeights(PhaseAnalysis)},
		PhaseConversion: {Weights: DefaultWeights(PhaseConversion)},
		PhaseStorage:    {Weights: DefaultWeights(PhaseStorage), MaxAttempts: 1, Advisory: true},
	}
}

// Options configures quality gating.
type Options struct {
	// Threshold is the success factor (0-100) required for acceptance.
	Threshold float64 `json:"threshold"`

	// MaxAttempts is the quality attempt budget per phase.
	MaxAttempts int `json:"max_attempts"`

	// ProceedOnExhausted continues with a best-effort artifact when a
	// non-advisory phase is exhausted. When false the unit halts.
	ProceedOnExhausted bool `json:"proceed_on_exhausted"`

	// Policies holds per-phase settings. Phases without an entry use
	// DefaultPolicies.
	Policies map[Phase]Policy `json:"policies,omitempty"`
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	policies := DefaultPolicies()
	for phase, p := range o.Policies {
		if p.Weights == nil {
			p.Weights = policies[phase].Weights
		}
		policies[phase] = p
	}
	for phase, p := range policies {
		p.Weights = p.Weights.clone()
		policies[phase] = p
	}
	o.Policies = policies
	return o
}

// Validate checks the threshold, the attempt budgets and every weight table.
func (o Options) Validate() error {
	if o.Threshold < 0 || o.Threshold > 100 {
		return errors.New(errors.ErrCodeInvalidConfig, "threshold must be within 0-100, got %v", o.Threshold)
	}
	if o.MaxAttempts < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "max attempts must be at least 1, got %d", o.MaxAttempts)
	}
	for phase, p := range o.Policies {
		if p.MaxAttempts < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s: max attempts must not be negative", phase)
		}
		if err := p.Weights.Validate(); err != nil {
			return fmt.Errorf("%s: %w", phase, err)
		}
	}
	return nil
}

// Policy returns the effective policy for phase.
func (o Options) Policy(phase Phase) Policy {
	p, ok := o.Policies[phase]
	if !ok {
		p = Policy{Weights: DefaultWeights(phase)}
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = o.MaxAttempts
	}
	return p
}

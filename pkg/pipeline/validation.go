package pipeline

import (
	"math"
	"sync"
	"time"
)

// Scores is what a Scorer reports for one artifact.
type Scores struct {
	Criteria        map[string]float64 `json:"criteria"`
	Issues          []string           `json:"issues,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// Validation is the immutable result of scoring one attempt.
type Validation struct {
	Phase           Phase              `json:"phase"`
	Attempt         int                `json:"attempt"`
	Scores          map[string]float64 `json:"scores"`
	SuccessFactor   float64            `json:"success_factor"`
	Threshold       float64            `json:"threshold"`
	Passed          bool               `json:"passed_threshold"`
	Issues          []string           `json:"issues,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// Evaluate weighs scores against w and threshold. The pass decision uses the
// exact composite; the recorded success factor is rounded to two decimals.
func Evaluate(phase Phase, attempt int, s Scores, w Weights, threshold float64) Validation {
	criteria := make(map[string]float64, len(w))
	for _, c := range w.Criteria() {
		criteria[c] = clamp(s.Criteria[c])
	}
	composite := w.Composite(criteria)
	return Validation{
		Phase:           phase,
		Attempt:         attempt,
		Scores:          criteria,
		SuccessFactor:   round2(composite),
		Threshold:       threshold,
		Passed:          Passes(composite, threshold),
		Issues:          append([]string(nil), s.Issues...),
		Recommendations: append([]string(nil), s.Recommendations...),
		Timestamp:       time.Now().UTC(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Unmet returns the criteria that individually scored below the threshold,
// in sorted order.
func (v Validation) Unmet() []string {
	var out []string
	for _, c := range Weights(v.Scores).Criteria() {
		if !Passes(v.Scores[c], v.Threshold) {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// History
// =============================================================================

// History is an append-only record of validations, shared by every unit a
// Runner processes. It is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []Validation
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Append records v.
func (h *History) Append(v Validation) {
	h.mu.Lock()
	h.entries = append(h.entries, v)
	h.mu.Unlock()
}

// Len returns the number of recorded validations.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns a copy of the recorded validations.
func (h *History) Entries() []Validation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Validation(nil), h.entries...)
}

// Reset discards all recorded validations.
func (h *History) Reset() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}

// Report summarizes a History.
type Report struct {
	TotalValidations     int          `json:"total_validations"`
	PassedPhases         int          `json:"passed_phases"`
	FailedPhases         int          `json:"failed_phases"`
	AverageSuccessFactor float64      `json:"average_success_factor"`
	History              []Validation `json:"history"`
}

// Report aggregates the recorded validations.
func (h *History) Report() Report {
	entries := h.Entries()
	r := Report{TotalValidations: len(entries), History: entries}
	if len(entries) == 0 {
		return r
	}
	var sum float64
	for _, v := range entries {
		if v.Passed {
			r.PassedPhases++
		} else {
			r.FailedPhases++
		}
		sum += v.SuccessFactor
	}
	r.AverageSuccessFactor = round2(sum / float64(len(entries)))
	return r
}

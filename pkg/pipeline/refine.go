package pipeline

// Feedback is the structured input of a refinement attempt.
type Feedback struct {
	// Attempt is the number of the attempt being prepared.
	Attempt         int      `json:"attempt"`
	SuccessFactor   float64  `json:"success_factor"`
	Threshold       float64  `json:"threshold"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`

	// Unmet lists the criteria that scored below the threshold.
	Unmet []string `json:"unmet_criteria,omitempty"`
}

// NewFeedback builds refinement feedback from a failed validation.
func NewFeedback(v Validation) Feedback {
	fb := Feedback{
		Attempt:         v.Attempt + 1,
		SuccessFactor:   v.SuccessFactor,
		Threshold:       v.Threshold,
		Issues:          append([]string{}, v.Issues...),
		Recommendations: append([]string{}, v.Recommendations...),
		Unmet:           v.Unmet(),
	}
	return fb
}


package phases

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/uimigrate/pkg/errors"
	"github.com/matzehuels/uimigrate/pkg/pipeline"
	"github.com/matzehuels/uimigrate/pkg/transform"
)

// Scorer grades artifacts with one transform call per artifact. The
// criteria it asks for are the keys of the phase's weight table.
type Scorer struct {
	Capability transform.Capability
	Options    pipeline.Options
}

// NewScorer returns a Scorer using the weight tables in opts.
func NewScorer(c transform.Capability, opts pipeline.Options) *Scorer {
	return &Scorer{Capability: c, Options: opts.WithDefaults()}
}

type scoreResponse struct {
	Scores          map[string]float64 `json:"scores"`
	Issues          []string           `json:"issues"`
	Recommendations []string           `json:"recommendations"`
}

func (s *Scorer) Score(ctx context.Context, phase pipeline.Phase, artifact json.RawMessage) (pipeline.Scores, error) {
	w := s.Options.Policy(phase).Weights
	raw, err := s.Capability.Invoke(ctx, ScoreInstruction(phase, w), string(artifact))
	if err != nil {
		return pipeline.Scores{}, err
	}
	var resp scoreResponse
	if err := transform.Decode(raw, &resp); err != nil {
		return pipeline.Scores{}, err
	}
	if resp.Scores == nil {
		return pipeline.Scores{}, errors.New(errors.ErrCodeInvalidResponse, "%s score response has no scores", phase)
	}
	return pipeline.Scores{
		Criteria:        resp.Scores,
		Issues:          resp.Issues,
		Recommendations: resp.Recommendations,
	}, nil
}

package phases

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/matzehuels/uimigrate/pkg/errors"
	"github.com/matzehuels/uimigrate/pkg/pipeline"
	"github.com/matzehuels/uimigrate/pkg/transform"
)

// Analysis extracts a Blueprint from legacy source. Execute makes two calls:
// extraction, then a validation pass that fills gaps in the first draft.
type Analysis struct {
	Capability transform.Capability
}

func (a *Analysis) Phase() pipeline.Phase { return pipeline.PhaseAnalysis }

func (a *Analysis) Execute(ctx context.Context, input []byte) (json.RawMessage, error) {
	if strings.TrimSpace(string(input)) == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "analysis input is empty")
	}
	draft, err := a.Capability.Invoke(ctx, InstructionExtract, string(input))
	if err != nil {
		return nil, err
	}
	if _, err := decodeBlueprint(draft); err != nil {
		return nil, err
	}
	return a.invoke(ctx, InstructionValidate, string(draft))
}

func (a *Analysis) Refine(ctx context.Context, artifact json.RawMessage, fb pipeline.Feedback) (json.RawMessage, error) {
	return a.invoke(ctx, InstructionRefineBlueprint, transform.Payload(refinementRequest{artifact, fb}))
}

func (a *Analysis) invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error) {
	raw, err := a.Capability.Invoke(ctx, instruction, payload)
	if err != nil {
		return nil, err
	}
	if _, err := decodeBlueprint(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

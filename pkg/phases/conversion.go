package phases

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/uimigrate/pkg/pipeline"
	"github.com/matzehuels/uimigrate/pkg/transform"
)

// Defaults for Conversion.
const (
	DefaultAngularVersion = "21"
	DefaultUIFramework    = "AG-Grid"
)

// Conversion turns a Blueprint into a code Bundle. Execute makes two calls:
// conversion, then an architecture pass over the generated code.
type Conversion struct {
	Capability     transform.Capability
	AngularVersion string
	UIFramework    string
}

func (c *Conversion) Phase() pipeline.Phase { return pipeline.PhaseConversion }

func (c *Conversion) Execute(ctx context.Context, input []byte) (json.RawMessage, error) {
	if _, err := decodeBlueprint(input); err != nil {
		return nil, err
	}
	version, framework := c.AngularVersion, c.UIFramework
	if version == "" {
		version = DefaultAngularVersion
	}
	if framework == "" {
		framework = DefaultUIFramework
	}
	draft, err := c.invoke(ctx, ConvertInstruction(version, framework), string(input))
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, InstructionArchitecture, string(draft))
}

func (c *Conversion) Refine(ctx context.Context, artifact json.RawMessage, fb pipeline.Feedback) (json.RawMessage, error) {
	return c.invoke(ctx, InstructionRefineCode, transform.Payload(refinementRequest{artifact, fb}))
}

func (c *Conversion) invoke(ctx context.Context, instruction, payload string) (json.RawMessage, error) {
	raw, err := c.Capability.Invoke(ctx, instruction, payload)
	if err != nil {
		return nil, err
	}
	if _, err := decodeBundle(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

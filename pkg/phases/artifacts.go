package phases

import (
	"encoding/json"

	"github.com/matzehuels/uimigrate/pkg/errors"
	"github.com/matzehuels/uimigrate/pkg/pipeline"
	"github.com/matzehuels/uimigrate/pkg/transform"
)

// DefaultFeatureName names a bundle whose feature name is empty.
const DefaultFeatureName = "MigratedFeature"

// Blueprint is the analysis artifact. Only the fields the pipeline inspects
// are typed; the rest of the document passes through untouched.
type Blueprint struct {
	FeatureName     string          `json:"feature_name"`
	Model           json.RawMessage `json:"model,omitempty"`
	Store           json.RawMessage `json:"store,omitempty"`
	Columns         json.RawMessage `json:"columns,omitempty"`
	SharedUtilities []string        `json:"shared_utilities,omitempty"`
}

func decodeBlueprint(raw json.RawMessage) (*Blueprint, error) {
	var bp Blueprint
	if err := transform.Decode(raw, &bp); err != nil {
		return nil, err
	}
	return &bp, nil
}

// Bundle is the conversion artifact: the generated source of one feature.
type Bundle struct {
	FeatureName   string `json:"feature_name"`
	Interface     string `json:"interface"`
	Service       string `json:"service"`
	ComponentTS   string `json:"component_ts"`
	ComponentHTML string `json:"component_html"`
	ComponentSCSS string `json:"component_scss"`
	CommonSCSS    string `json:"common_scss,omitempty"`
}

// Name returns the feature name, or DefaultFeatureName when empty.
func (b *Bundle) Name() string {
	if b.FeatureName == "" {
		return DefaultFeatureName
	}
	return b.FeatureName
}

// Validate checks that the bundle can be deployed.
func (b *Bundle) Validate() error {
	if b.ComponentTS == "" || b.ComponentHTML == "" {
		return errors.New(errors.ErrCodeInvalidResponse, "code bundle is missing component_ts or component_html")
	}
	if err := errors.ValidateFeatureName(b.Name()); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidResponse, err, "code bundle feature name")
	}
	return nil
}

func decodeBundle(raw json.RawMessage) (*Bundle, error) {
	var b Bundle
	if err := transform.Decode(raw, &b); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// File is one written file in a Manifest.
type File struct {
	// Path is relative to the output root, slash separated.
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// Manifest is the storage artifact.
type Manifest struct {
	FeatureName string `json:"feature_name"`
	Slug        string `json:"slug"`
	Root        string `json:"root"`
	Files       []File `json:"files"`
	FileCount   int    `json:"file_count"`
}

// refinementRequest is the payload of a refinement call.
type refinementRequest struct {
	Artifact json.RawMessage   `json:"artifact"`
	Feedback pipeline.Feedback `json:"feedback"`
}

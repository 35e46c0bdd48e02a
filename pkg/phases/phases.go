// Package phases implements the migration stages on top of a transform
// capability: ExtJS analysis, Angular conversion and file placement, plus the
// transform-backed quality scorer.
//
// The stages satisfy pipeline.Stage and the scorer satisfies
// pipeline.Scorer:
//
//	stages := phases.New(capability, phases.Options{OutDir: "./web"})
//	scorer := phases.NewScorer(capability, pipeline.Options{})
//	runner, err := pipeline.NewRunner(stages, scorer, pipeline.Options{}, logger)
package phases

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/uimigrate/pkg/pipeline"
	"github.com/matzehuels/uimigrate/pkg/transform"
)

// Options configures the stages built by New.
type Options struct {
	// OutDir is the Angular project root files are written to.
	OutDir string

	AngularVersion string
	UIFramework    string

	Logger *log.Logger
}

// New returns the analysis, conversion and storage stages in order.
func New(c transform.Capability, opts Options) []pipeline.Stage {
	return []pipeline.Stage{
		&Analysis{Capability: c},
		&Conversion{Capability: c, AngularVersion: opts.AngularVersion, UIFramework: opts.UIFramework},
		&Storage{Root: opts.OutDir, Logger: opts.Logger},
	}
}

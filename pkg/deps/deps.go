package deps

import (
	"fmt"

	"github.com/charmbracelet/log"
)

const (
	DefaultMaxDepth      = 5     // Default maximum traversal depth
	DefaultExtension     = ".js" // Default source extension
	DefaultSearchParents = 3     // Parent directories tried for namespace references
)

// Options configures dependency resolution.
type Options struct {
	BaseDir       string      // Fallback root for references (default: working directory)
	MaxDepth      int         // Maximum depth to traverse (default: 5)
	Extension     string      // Source file extension (default: ".js")
	SearchParents int         // Parents of BaseDir searched for namespaces (default: 3)
	Ignore        []string    // Extra external-unit patterns
	Logger        *log.Logger // Debug logging (default: log.Default())
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.BaseDir == "" {
		opts.BaseDir = "."
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.SearchParents < 0 {
		opts.SearchParents = 0
	} else if opts.SearchParents == 0 {
		opts.SearchParents = DefaultSearchParents
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return opts
}

// Stats summarizes the dependency graph of one unit.
type Stats struct {
	Unit                  string   `json:"file"`
	DirectDependencyCount int      `json:"direct_dependency_count"`
	TotalDependencyCount  int      `json:"total_dependency_count"`
	MaxDepth              int      `json:"max_depth"`
	Cycles                []Cycle  `json:"circular_dependencies"`
	HasCycles             bool     `json:"has_circular_deps"`
	AllDependencies       []string `json:"all_dependencies"`
}

// Cycle is a back edge: To was on the traversal stack when reached from From.
type Cycle struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (c Cycle) String() string { return fmt.Sprintf("%s -> %s", c.From, c.To) }

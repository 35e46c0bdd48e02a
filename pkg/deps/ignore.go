package deps

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// DefaultIgnorePatterns match framework directories, vendored packages,
// framework-namespaced class names and minified bundles.
var DefaultIgnorePatterns = []string{
	`[\\/]ext[\\/]`,
	`[\\/]extjs[\\/]`,
	`[\\/]node_modules[\\/]`,
	`^Ext\.`,
	`\.min\.js$`,
}

// Policy decides which units are external. Patterns are case-insensitive.
type Policy struct {
	baseDir  string
	patterns []*regexp.Regexp
}

// NewPolicy compiles the default patterns plus extra. Paths are matched
// relative to baseDir (with a leading slash) so that a project living under
// a directory called "ext" is not itself external.
func NewPolicy(baseDir string, extra ...string) (*Policy, error) {
	p := &Policy{baseDir: baseDir}
	for _, src := range append(slices.Clone(DefaultIgnorePatterns), extra...) {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", src, err)
		}
		p.patterns = append(p.patterns, re)
	}
	return p, nil
}

// MatchPath reports whether the unit at path is external.
func (p *Policy) MatchPath(path string) bool {
	return p.match(p.relative(path))
}

// MatchReference reports whether a raw reference names an external symbol.
func (p *Policy) MatchReference(ref string) bool {
	return p.match(ref)
}

func (p *Policy) match(s string) bool {
	for _, re := range p.patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func (p *Policy) relative(path string) string {
	if p.baseDir == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(p.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return "/" + filepath.ToSlash(rel)
}

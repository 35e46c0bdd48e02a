// Package scan discovers legacy source units on disk.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/matzehuels/uimigrate/pkg/errors"
)

// DefaultExtension is the source extension scanned for.
const DefaultExtension = ".js"

// DefaultSkipDirs are directory names never descended into.
var DefaultSkipDirs = []string{".git", "node_modules", ".angular", "dist", "build"}

// Options configures Files.
type Options struct {
	// Extension selects files, including the dot. Defaults to ".js".
	Extension string

	// SkipDirs replaces DefaultSkipDirs when non-nil.
	SkipDirs []string

	// UseGitignore filters out paths matched by the root .gitignore.
	UseGitignore bool
}

// WithDefaults returns a copy of o with empty fields filled in.
func (o Options) WithDefaults() Options {
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	if !strings.HasPrefix(o.Extension, ".") {
		o.Extension = "." + o.Extension
	}
	if o.SkipDirs == nil {
		o.SkipDirs = DefaultSkipDirs
	}
	return o
}

// Files returns the absolute paths of every file under root with the
// configured extension, sorted.
func Files(root string, opts Options) ([]string, error) {
	opts = opts.WithDefaults()
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "source directory %s", root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s is not a directory", root)
	}

	skip := make(map[string]struct{}, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		skip[d] = struct{}{}
	}
	var gi *ignore.GitIgnore
	if opts.UseGitignore {
		gi = loadGitignore(root)
	}

	var results []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, ok := skip[d.Name()]; ok {
				return filepath.SkipDir
			}
			if gi != nil && matches(gi, root, path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(path), opts.Extension) {
			return nil
		}
		if gi != nil && matches(gi, root, path, false) {
			return nil
		}
		results = append(results, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(results)
	return results, nil
}

// Sources expands path into units: a file yields itself, a directory is
// scanned with opts.
func Sources(path string, opts Options) ([]string, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "source %s", path)
	}
	if info.IsDir() {
		return Files(abs, opts)
	}
	return []string{abs}, nil
}

func matches(gi *ignore.GitIgnore, root, path string, dir bool) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir {
		rel += "/"
	}
	return gi.MatchesPath(rel)
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

package deps

import (
	"os"
	"path/filepath"
	"strings"
)

// PathResolver maps references to files on disk. It holds no state between
// calls; results depend only on the references and the filesystem.
type PathResolver struct {
	baseDir       string
	ext           string
	searchParents int
}

// NewPathResolver creates a resolver rooted at baseDir. ext is the source
// extension appended to candidates (".js"); searchParents bounds how many
// parent directories of baseDir are tried for namespace references.
func NewPathResolver(baseDir, ext string, searchParents int) *PathResolver {
	return &PathResolver{baseDir: baseDir, ext: ext, searchParents: searchParents}
}

// Resolve maps each reference to a canonical file path. References that
// match nothing are absent from the result.
func (r *PathResolver) Resolve(refs []Reference, fromUnit string) map[string]string {
	unitDir := r.baseDir
	if fromUnit != "" {
		unitDir = filepath.Dir(fromUnit)
	}
	out := make(map[string]string)
	for _, ref := range refs {
		if p, ok := r.resolveOne(ref.Raw, unitDir); ok {
			out[ref.Raw] = p
		}
	}
	return out
}

func (r *PathResolver) resolveOne(ref, unitDir string) (string, bool) {
	if isNamespace(ref) {
		rel := strings.ReplaceAll(ref, ".", string(filepath.Separator)) + r.ext
		for _, root := range r.searchRoots() {
			if p, ok := regularFile(filepath.Join(root, rel)); ok {
				return p, true
			}
		}
	}

	if !isRelative(ref) && !filepath.IsAbs(ref) {
		if p, ok := r.tryWithExt(unitDir, ref); ok {
			return p, true
		}
	}

	if filepath.IsAbs(ref) {
		if p, ok := regularFile(ref); ok {
			return p, true
		}
	}

	return r.tryWithExt(r.baseDir, ref)
}

func (r *PathResolver) tryWithExt(dir, ref string) (string, bool) {
	if p, ok := regularFile(filepath.Join(dir, ref+r.ext)); ok {
		return p, true
	}
	return regularFile(filepath.Join(dir, ref))
}

// searchRoots returns baseDir followed by up to searchParents ancestors.
func (r *PathResolver) searchRoots() []string {
	roots := []string{r.baseDir}
	cur := r.baseDir
	for i := 0; i < r.searchParents; i++ {
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		roots = append(roots, parent)
		cur = parent
	}
	return roots
}

// isNamespace reports whether ref looks like a dotted class path
// (MyApp.view.Grid) rather than a file path.
func isNamespace(ref string) bool {
	return strings.Contains(ref, ".") &&
		!strings.ContainsAny(ref, `/\`) &&
		!strings.HasPrefix(ref, ".")
}

func isRelative(ref string) bool {
	return strings.HasPrefix(ref, ".")
}

func regularFile(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	abs, err := Canonical(path)
	if err != nil {
		return "", false
	}
	return abs, true
}

// Canonical returns the cleaned absolute form of path, used as unit identity.
func Canonical(path string) (string, error) {
	return filepath.Abs(path)
}

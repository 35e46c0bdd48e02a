package deps

import (
	"regexp"
	"slices"
	"strings"
)

// Category names the pattern that produced a reference.
type Category string

const (
	CategoryImport     Category = "es6_import"
	CategoryRequire    Category = "require"
	CategoryRequires   Category = "requires"
	CategoryXType      Category = "xtype"
	CategoryController Category = "controller"
	CategoryViewModel  Category = "view_model"
	CategoryStore      Category = "store"
	CategoryModel      Category = "model"
	CategoryBindStore  Category = "bind_store"
)

// Reference is a symbolic mention of another unit.
type Reference struct {
	Raw      string   `json:"raw"`
	Category Category `json:"category"`
}

type pattern struct {
	category Category
	re       *regexp.Regexp
}

// Order matters: when the same raw string matches several categories the
// first one wins.
var patterns = []pattern{
	{CategoryImport, regexp.MustCompile(`import\s+(?:\{[^}]+\}|[^'"]+(?: as \w+)?)\s+from\s+['"]([^'"]+)['"]`)},
	{CategoryRequire, regexp.MustCompile(`require\(['"]([^'"]+)['"]\)`)},
	{CategoryXType, regexp.MustCompile(`xtype\s*:\s*['"]([^'"]+)['"]`)},
	{CategoryController, regexp.MustCompile(`controller\s*:\s*['"]([^'"]+)['"]`)},
	{CategoryViewModel, regexp.MustCompile(`viewModel\s*:\s*['"]([^'"]+)['"]`)},
	{CategoryStore, regexp.MustCompile(`store\s*:\s*['"]([^'"]+)['"]`)},
	{CategoryModel, regexp.MustCompile(`model\s*:\s*['"]([^'"]+)['"]`)},
}

var (
	requiresListRe = regexp.MustCompile(`requires\s*:\s*\[\s*([^\]]+)\s*\]`)
	quotedRe       = regexp.MustCompile(`['"]([^'"]+)['"]`)
	bindStoreRe    = regexp.MustCompile(`store\s*:\s*['"]\{([^'"}]+)\}['"]`)
)

// Extract returns the references found in text, deduplicated by raw string
// and sorted. It never fails; text without recognized patterns yields nil.
func Extract(text string) []Reference {
	seen := make(map[string]Category)
	add := func(raw string, c Category) {
		if raw == "" {
			return
		}
		if _, ok := seen[raw]; !ok {
			seen[raw] = c
		}
	}

	collect := func(p pattern) {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			add(m[1], p.category)
		}
	}

	collect(patterns[0])
	collect(patterns[1])

	// Only the first requires list is honoured.
	if m := requiresListRe.FindStringSubmatch(text); m != nil {
		for _, q := range quotedRe.FindAllStringSubmatch(m[1], -1) {
			add(q[1], CategoryRequires)
		}
	}

	for _, p := range patterns[2:] {
		collect(p)
	}

	for _, m := range bindStoreRe.FindAllStringSubmatch(text, -1) {
		if strings.Contains(m[1], ".") {
			add(m[1], CategoryBindStore)
		}
	}

	if len(seen) == 0 {
		return nil
	}
	refs := make([]Reference, 0, len(seen))
	for raw, c := range seen {
		refs = append(refs, Reference{Raw: raw, Category: c})
	}
	slices.SortFunc(refs, func(a, b Reference) int { return strings.Compare(a.Raw, b.Raw) })
	return refs
}

package phases

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uimigrate/pkg/errors"
	"github.com/matzehuels/uimigrate/pkg/pipeline"
)

// Storage writes a Bundle into an Angular project:
//
//	src/app/features/<slug>/<slug>.component.{ts,html,scss}
//	src/app/services/<slug>.service.ts
//	src/app/models/<slug>.model.ts
//	src/app/shared/styles/<slug>.common.scss   (only when non-empty)
//
// Existing files are overwritten. The artifact is a Manifest of what was
// written.
type Storage struct {
	Root   string
	Logger *log.Logger
}

func (s *Storage) Phase() pipeline.Phase { return pipeline.PhaseStorage }

func (s *Storage) Execute(ctx context.Context, input []byte) (json.RawMessage, error) {
	b, err := decodeBundle(input)
	if err != nil {
		return nil, err
	}
	m, err := s.Deploy(ctx, b)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Refine returns the manifest unchanged; placement is a pure function of
// the bundle, so a second attempt would write the same files.
func (s *Storage) Refine(_ context.Context, artifact json.RawMessage, _ pipeline.Feedback) (json.RawMessage, error) {
	return artifact, nil
}

// Deploy writes b below s.Root and returns the manifest.
func (s *Storage) Deploy(ctx context.Context, b *Bundle) (*Manifest, error) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "output root %q", s.Root)
	}
	slug := Slug(b.Name())
	if err := errors.ValidateSlug(slug); err != nil {
		return nil, err
	}

	m := &Manifest{FeatureName: b.Name(), Slug: slug, Root: root}
	for _, f := range layout(slug, b) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := filepath.Join(root, filepath.FromSlash(f.path))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create directory for %s", f.path)
		}
		if err := os.WriteFile(dst, []byte(f.content), 0o644); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "write %s", f.path)
		}
		m.Files = append(m.Files, File{Path: f.path, Bytes: len(f.content)})
		logger.Debug("wrote file", "path", dst, "bytes", len(f.content))
	}
	m.FileCount = len(m.Files)
	logger.Info("deployed feature", "feature", m.FeatureName, "slug", slug, "files", m.FileCount)
	return m, nil
}

type plannedFile struct {
	path    string
	content string
}

// layout returns the files a bundle deploys to, relative to the project
// root, in write order.
func layout(slug string, b *Bundle) []plannedFile {
	feature := path.Join("src/app/features", slug)
	files := []plannedFile{
		{path.Join(feature, slug+".component.ts"), b.ComponentTS},
		{path.Join(feature, slug+".component.html"), b.ComponentHTML},
		{path.Join(feature, slug+".component.scss"), b.ComponentSCSS},
		{path.Join("src/app/services", slug+".service.ts"), b.Service},
		{path.Join("src/app/models", slug+".model.ts"), b.Interface},
	}
	if strings.TrimSpace(b.CommonSCSS) != "" {
		files = append(files, plannedFile{path.Join("src/app/shared/styles", slug+".common.scss"), b.CommonSCSS})
	}
	return files
}

// Slug converts a feature name to a kebab-case file stem: "UserGridComponent"
// becomes "user-grid". Underscores, spaces and other separators become
// dashes and a trailing "-component" is dropped.
func Slug(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	slug := strings.Join(parts, "-")
	if trimmed := strings.TrimSuffix(slug, "-component"); trimmed != "" {
		slug = trimmed
	}
	return slug
}

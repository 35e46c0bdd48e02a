package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePath validates a unit path supplied by a user or read from a ledger.
// Absolute and relative paths are both accepted; the checks only reject input
// that cannot name a file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// slugRegex matches kebab-case file stems such as "user-grid".
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateSlug validates a generated file stem before it is joined onto an
// output directory. It rejects anything that could escape that directory.
func ValidateSlug(slug string) error {
	if slug == "" {
		return New(ErrCodeInvalidName, "slug cannot be empty")
	}
	if len(slug) > 128 {
		return New(ErrCodeInvalidName, "slug too long (max 128 characters)")
	}
	if strings.ContainsAny(slug, `/\`) || strings.Contains(slug, "..") {
		return New(ErrCodeInvalidName, "slug cannot contain path components: %q", slug)
	}
	if !slugRegex.MatchString(slug) {
		return New(ErrCodeInvalidName, "slug must be kebab-case: %q", slug)
	}
	return nil
}

// ValidateFeatureName validates a feature name returned by the transform
// service. Names must start with a letter and contain only letters, digits,
// dashes and underscores.
func ValidateFeatureName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "feature name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidName, "feature name too long (max 128 characters)")
	}
	for i, r := range name {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII:
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '_'):
		default:
			return New(ErrCodeInvalidName, "feature name contains invalid character %q", r)
		}
	}
	return nil
}

package errors

import (
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "app/view/UserGrid.js", false},
		{"absolute", "/src/app/view/UserGrid.js", false},
		{"with parent", "../shared/Util.js", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 5000), true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "grid", false},
		{"kebab", "user-grid", false},
		{"digits", "report-2024", false},

		{"empty", "", true},
		{"upper", "UserGrid", true},
		{"traversal", "..", true},
		{"separator", "a/b", true},
		{"trailing dash", "user-", true},
		{"double dash", "user--grid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlug(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlug(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidName) {
				t.Errorf("ValidateSlug(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidName)
			}
		})
	}
}

func TestValidateFeatureName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"pascal", "UserGrid", false},
		{"with digits", "Report2024", false},
		{"with dash", "user-grid", false},

		{"empty", "", true},
		{"leading digit", "2Grid", true},
		{"path", "../etc/passwd", true},
		{"space", "User Grid", true},
		{"non ascii", "Grüße", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeatureName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFeatureName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func rels(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app/view/Grid.js":          "",
		"app/store/Users.js":        "",
		"app/view/Grid.css":         "",
		"Main.JS":                   "",
		"node_modules/lib/index.js": "",
		".git/hooks/pre-commit.js":  "",
		"build/bundle.js":           "",
		"dist/app.js":               "",
		".angular/cache/x.js":       "",
	})

	got, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"Main.JS", "app/store/Users.js", "app/view/Grid.js"}
	if r := rels(t, root, got); !reflect.DeepEqual(r, want) {
		t.Errorf("Files() = %v, want %v", r, want)
	}
	for _, p := range got {
		if !filepath.IsAbs(p) {
			t.Errorf("%s is not absolute", p)
		}
	}
}

func TestFilesGitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":           "generated/\n*.min.js\n",
		"app/Grid.js":          "",
		"app/Grid.min.js":      "",
		"generated/Schema.js":  "",
		"generated/deep/At.js": "",
	})

	got, err := Files(root, Options{UseGitignore: true})
	if err != nil {
		t.Fatal(err)
	}
	if r := rels(t, root, got); !reflect.DeepEqual(r, []string{"app/Grid.js"}) {
		t.Errorf("Files() = %v", r)
	}

	all, err := Files(root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("without gitignore got %d files, want 4", len(all))
	}
}

func TestFilesCustomExtension(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.ts": "", "b.js": ""})
	got, err := Files(root, Options{Extension: "ts"})
	if err != nil {
		t.Fatal(err)
	}
	if r := rels(t, root, got); !reflect.DeepEqual(r, []string{"a.ts"}) {
		t.Errorf("Files() = %v", r)
	}
}

func TestSources(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.js": "", "sub/b.js": ""})

	single, err := Sources(filepath.Join(root, "a.js"), Options{})
	if err != nil || len(single) != 1 {
		t.Fatalf("Sources(file) = %v, %v", single, err)
	}
	dir, err := Sources(root, Options{})
	if err != nil || len(dir) != 2 {
		t.Fatalf("Sources(dir) = %v, %v", dir, err)
	}
	if _, err := Sources(filepath.Join(root, "missing"), Options{}); err == nil {
		t.Error("Sources(missing) = nil error")
	}
	if _, err := Files(filepath.Join(root, "a.js"), Options{}); err == nil {
		t.Error("Files(file) = nil error")
	}
}

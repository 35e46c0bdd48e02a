package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uimigrate/internal/config"
	"github.com/matzehuels/uimigrate/pkg/graph"
	"github.com/matzehuels/uimigrate/pkg/ledger"
)

func TestRootCommandRegistersCommands(t *testing.T) {
	root := New(&strings.Builder{}, LogInfo).RootCommand()

	for _, name := range []string{"migrate", "deps", "ledger", "cache", "serve", "completion"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, path := range [][]string{
		{"deps", "graph"},
		{"ledger", "retry"},
		{"cache", "clear"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[1] {
			t.Errorf("command %v not registered", path)
		}
	}
}

func TestMigrateFlagsApply(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(*config.Config) bool
		wantErr bool
	}{
		{
			name:  "unchanged flags keep config",
			args:  nil,
			check: func(c *config.Config) bool { return c.Batch.Workers == 3 && c.Pipeline.Threshold == 70 },
		},
		{
			name:  "workers override",
			args:  []string{"--workers", "8"},
			check: func(c *config.Config) bool { return c.Batch.Workers == 8 && c.Pipeline.Threshold == 70 },
		},
		{
			name:  "pipeline overrides",
			args:  []string{"--threshold", "90", "--max-attempts", "5", "--proceed-on-exhausted"},
			check: func(c *config.Config) bool {
				return c.Pipeline.Threshold == 90 && c.Pipeline.MaxAttempts == 5 && c.Pipeline.ProceedOnExhausted
			},
		},
		{
			name:    "invalid threshold",
			args:    []string{"--threshold", "120"},
			wantErr: true,
		},
		{
			name:    "invalid workers",
			args:    []string{"--workers", "0"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &migrateFlags{}
			cmd := &cobra.Command{Use: "migrate"}
			cmd.Flags().IntVar(&f.workers, "workers", 1, "")
			cmd.Flags().Float64Var(&f.threshold, "threshold", 85, "")
			cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 3, "")
			cmd.Flags().BoolVar(&f.proceedOnExhausted, "proceed-on-exhausted", false, "")
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}

			cfg := config.Default()
			cfg.Batch.Workers = 3
			cfg.Pipeline.Threshold = 70

			err := f.apply(cmd, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("apply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !tt.check(cfg) {
				t.Errorf("apply() produced %+v / %+v", cfg.Batch, cfg.Pipeline)
			}
		})
	}
}

func TestResolverBase(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Grid.js")
	if err := os.WriteFile(file, []byte("Ext.define('A', {});"), 0o644); err != nil {
		t.Fatal(err)
	}
	saved := filepath.Join(t.TempDir(), "legacy")
	wd, _ := os.Getwd()

	tests := []struct {
		source  string
		saved   string
		want    string
		wantErr bool
	}{
		{"", "", wd, false},
		{"", saved, saved, false},
		{dir, saved, dir, false},
		{file, "", dir, false},
		{filepath.Join(dir, "missing.js"), "", "", true},
	}
	for _, tt := range tests {
		got, err := resolverBase(tt.source, tt.saved)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolverBase(%q, %q) error = %v", tt.source, tt.saved, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolverBase(%q, %q) = %q, want %q", tt.source, tt.saved, got, tt.want)
		}
	}
}

func TestResumeUsesSavedSourceRoot(t *testing.T) {
	project := t.TempDir()
	for name, content := range map[string]string{
		"app/Main.js": "require('./Grid');",
		"app/Grid.js": "",
	} {
		path := filepath.Join(project, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ctx := context.Background()
	store := ledger.NewFileStore(filepath.Join(project, ".uimigrate", "ledger.json"))

	// First run: started on the app directory, interrupted before Main.js.
	base, err := resolverBase(filepath.Join(project, "app"), "")
	if err != nil {
		t.Fatal(err)
	}
	l := ledger.New()
	l.SetSourceRoot(base)
	l.Enqueue(filepath.Join(project, "app", "Main.js"))
	if err := ledger.Save(ctx, store, l); err != nil {
		t.Fatal(err)
	}

	// Resume from somewhere else.
	t.Chdir(t.TempDir())
	resumed, err := ledger.Open(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	base, err = resolverBase("", resumed.SourceRoot())
	if err != nil {
		t.Fatal(err)
	}
	if base != filepath.Join(project, "app") {
		t.Fatalf("resumed base = %q, want %q", base, filepath.Join(project, "app"))
	}

	cfg := config.Default()
	r, err := New(&strings.Builder{}, LogInfo).newResolver(cfg, base)
	if err != nil {
		t.Fatal(err)
	}
	flat, err := r.Flatten(ctx, filepath.Join(project, "app", "Main.js"))
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 1 || flat[0] != filepath.Join(project, "app", "Grid.js") {
		t.Errorf("Flatten() after resume = %v", flat)
	}
}

func TestEncodeGraph(t *testing.T) {
	g := graph.New("/src/a.js")
	for _, p := range []string{"/src/a.js", "/src/b.js"} {
		if _, err := g.AddNode(graph.Node{Path: p, Kind: graph.KindUnit}); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge(graph.Edge{From: "/src/a.js", To: "/src/b.js"}); err != nil {
		t.Fatal(err)
	}
	cmd := &cobra.Command{}

	dot, err := encodeGraph(cmd, g, formatDOT, false)
	if err != nil {
		t.Fatalf("dot: %v", err)
	}
	if !strings.Contains(string(dot), "digraph G {") {
		t.Errorf("dot output missing header:\n%s", dot)
	}

	data, err := encodeGraph(cmd, g, formatJSON, false)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded struct {
		Nodes []json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if len(decoded.Nodes) != 2 {
		t.Errorf("json nodes = %d, want 2", len(decoded.Nodes))
	}

	if _, err := encodeGraph(cmd, g, "png", false); err == nil {
		t.Error("unknown format should fail")
	}

	exported := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(exported, data, 0o644); err != nil {
		t.Fatal(err)
	}
	reloaded, err := New(&strings.Builder{}, LogInfo).loadGraph(cmd, &depsOpts{}, exported)
	if err != nil {
		t.Fatalf("loadGraph: %v", err)
	}
	if reloaded.NodeCount() != 2 || reloaded.EdgeCount() != 1 {
		t.Errorf("reloaded graph has %d nodes, %d edges", reloaded.NodeCount(), reloaded.EdgeCount())
	}
}

func TestCacheDir(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = "/tmp/custom"
	if got, _ := cacheDir(cfg); got != "/tmp/custom" {
		t.Errorf("cacheDir() = %q, want configured dir", got)
	}

	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	cfg.Cache.Dir = ""
	if got, _ := cacheDir(cfg); got != filepath.Join("/tmp/xdg", appName) {
		t.Errorf("cacheDir() = %q, want XDG location", got)
	}
}

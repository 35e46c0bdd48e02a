package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uimigrate/pkg/deps"
	"github.com/matzehuels/uimigrate/pkg/ledger"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"app/Main.js": "require('./app/Grid');", // relative to the project root
		"app/Grid.js": "var grid = 1;",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	quiet := log.NewWithOptions(io.Discard, log.Options{})
	store := ledger.NewFileStore(filepath.Join(root, ".uimigrate", "ledger.json"))
	l := ledger.New()
	l.Enqueue(filepath.Join(root, "app", "Grid.js"))
	l.MarkSuccess(filepath.Join(root, "app", "Main.js"), ledger.StatusSuccess, json.RawMessage(`{"files":5}`),
		[]string{filepath.Join(root, "app", "Grid.js")})
	l.MarkFailed(filepath.Join(root, "app", "Broken.js"), "analysis attempt 1: model unavailable")
	if err := ledger.Save(context.Background(), store, l); err != nil {
		t.Fatal(err)
	}

	res, err := deps.New(deps.Options{BaseDir: root, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	return New(Options{Store: store, Resolver: res, Logger: quiet}), root
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	s, _ := newTestServer(t)
	const id = "6f1c8f0e-3c1d-4b8e-9a51-0c2f3b7d9e11"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}

	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got == "not-a-uuid" || got == "" {
		t.Errorf("malformed request id kept: %q", got)
	}
}

func TestLedgerStatistics(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/ledger")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var stats ledger.Statistics
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalProcessed != 1 || stats.TotalFailed != 1 || stats.RemainingInQueue != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalDependenciesResolved != 1 || stats.SuccessRate != 50 {
		t.Errorf("deps = %d, rate = %v", stats.TotalDependenciesResolved, stats.SuccessRate)
	}
}

func TestUnits(t *testing.T) {
	s, root := newTestServer(t)
	rec := get(t, s, "/api/units")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body unitsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Processed) != 1 || body.Processed[0].Result != nil {
		t.Errorf("processed = %+v", body.Processed)
	}
	if len(body.Failed) != 1 || body.Failed[0].Reason == "" {
		t.Errorf("failed = %+v", body.Failed)
	}
	if len(body.Queue) != 1 || body.Queue[0] != filepath.Join(root, "app", "Grid.js") {
		t.Errorf("queue = %v", body.Queue)
	}
}

func TestDeps(t *testing.T) {
	s, root := newTestServer(t)
	rec := get(t, s, "/api/deps?unit="+url.QueryEscape("app/Main.js"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var stats deps.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Unit != filepath.Join(root, "app", "Main.js") || stats.TotalDependencyCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGraphJSONAndSVG(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/graph?unit=app/Main.js")
	if rec.Code != http.StatusOK {
		t.Fatalf("graph status = %d: %s", rec.Code, rec.Body)
	}
	var doc struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Nodes) != 2 || len(doc.Edges) != 1 {
		t.Errorf("graph has %d nodes, %d edges", len(doc.Nodes), len(doc.Edges))
	}

	rec = get(t, s, "/api/graph.svg?unit=app/Main.js")
	if rec.Code != http.StatusOK {
		t.Fatalf("svg status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Error("body is not SVG")
	}
}

func TestUnitParamErrors(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		target string
		status int
	}{
		{"/api/deps", http.StatusBadRequest},
		{"/api/deps?unit=" + url.QueryEscape("../outside.js"), http.StatusBadRequest},
		{"/api/graph?unit=app/Missing.js", http.StatusNotFound},
		{"/api/graph.svg?unit=app", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, s, tt.target)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("error body = %v (%v)", body, err)
			}
		})
	}
}

func TestMissingCollaborators(t *testing.T) {
	s := New(Options{Logger: log.NewWithOptions(io.Discard, log.Options{})})
	if rec := get(t, s, "/api/ledger"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ledger status = %d", rec.Code)
	}
	if rec := get(t, s, "/api/deps?unit=a.js"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("deps status = %d", rec.Code)
	}
}

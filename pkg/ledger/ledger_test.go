package ledger

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func units(dir string, names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}

func TestEnqueueIdempotent(t *testing.T) {
	l := New()
	p := units(t.TempDir(), "a.js")[0]

	if n := l.Enqueue(p, p); n != 1 {
		t.Errorf("Enqueue(p, p) added %d, want 1", n)
	}
	if n := l.Enqueue(p); n != 0 {
		t.Errorf("second Enqueue added %d, want 0", n)
	}
	if got := l.Queue(); len(got) != 1 || got[0] != p {
		t.Errorf("Queue() = %v", got)
	}
}

func TestEnqueueCanonicalizes(t *testing.T) {
	dir := t.TempDir()
	l := New()
	l.Enqueue(filepath.Join(dir, "sub", "..", "a.js"))
	l.Enqueue(filepath.Join(dir, "a.js"))
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestEnqueueSkipsProcessedAndInFlight(t *testing.T) {
	u := units(t.TempDir(), "a.js", "b.js")
	l := New()
	l.Enqueue(u...)

	head, _ := l.Dequeue()
	if n := l.Enqueue(head); n != 0 {
		t.Error("in-flight path was enqueued again")
	}
	l.MarkSuccess(head, StatusSuccess, nil, nil)
	if n := l.Enqueue(head); n != 0 {
		t.Error("processed path was enqueued again")
	}
}

func TestDequeueFIFO(t *testing.T) {
	u := units(t.TempDir(), "a.js", "b.js", "c.js")
	l := New()
	l.Enqueue(u...)
	for _, want := range u {
		got, ok := l.Dequeue()
		if !ok || got != want {
			t.Fatalf("Dequeue() = %q, %v; want %q", got, ok, want)
		}
	}
	if _, ok := l.Dequeue(); ok {
		t.Error("Dequeue() on empty queue returned ok")
	}
}

func TestFailureSupersedesSuccess(t *testing.T) {
	p := units(t.TempDir(), "a.js")[0]
	l := New()
	l.MarkSuccess(p, StatusSuccess, json.RawMessage(`{"ok":true}`), []string{"/x.js"})
	l.MarkFailed(p, "conversion: quota")

	if l.IsProcessed(p) {
		t.Error("IsProcessed() = true after MarkFailed")
	}
	failed := l.Failed()
	if len(failed) != 1 || failed[0].Path != p || failed[0].Reason != "conversion: quota" {
		t.Errorf("Failed() = %+v", failed)
	}
	if len(l.Processed()) != 0 {
		t.Errorf("Processed() = %+v, want empty", l.Processed())
	}
	if failed[0].RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", failed[0].RetryCount)
	}
}

func TestSuccessClearsFailure(t *testing.T) {
	p := units(t.TempDir(), "a.js")[0]
	l := New()
	l.MarkFailed(p, "boom")
	l.MarkSuccess(p, "", nil, nil)

	e, ok := l.Entry(p)
	if !ok || e.Status != StatusSuccess || e.RetryCount != 2 {
		t.Errorf("Entry() = %+v, %v", e, ok)
	}
	if len(l.Failed()) != 0 {
		t.Error("failed record survived a later success")
	}
}

func TestRetryFailed(t *testing.T) {
	u := units(t.TempDir(), "a.js", "b.js", "c.js")
	l := New()
	l.MarkFailed(u[1], "x")
	l.MarkFailed(u[0], "y")
	l.MarkSuccess(u[2], StatusSuccess, nil, nil)

	if n := l.RetryFailed(u[2]); n != 0 {
		t.Error("a processed unit was re-enqueued as failed")
	}
	if n := l.RetryFailed(); n != 2 {
		t.Errorf("RetryFailed() = %d, want 2", n)
	}
	if got := l.Queue(); !reflect.DeepEqual(got, u[:2]) {
		t.Errorf("Queue() = %v, want %v", got, u[:2])
	}
}

func TestStats(t *testing.T) {
	u := units(t.TempDir(), "a.js", "b.js", "c.js", "d.js", "e.js")
	l := New()
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return start }
	l.Clear()

	l.MarkSuccess(u[0], StatusSuccess, nil, []string{"/dep/x.js", "/dep/y.js"})
	l.MarkSuccess(u[1], StatusSuccess, nil, []string{"/dep/y.js"})
	l.MarkSuccess(u[2], StatusReviewNeeded, nil, []string{"/dep/z.js"})
	l.MarkFailed(u[3], "halted")
	l.MarkSkipped(filepath.Join("/vendor", "ext-all.js"), "external resource")
	l.Enqueue(u[4])

	l.now = func() time.Time { return start.Add(90 * time.Second) }
	s := l.Stats()
	if s.TotalProcessed != 2 || s.TotalReviewNeeded != 1 || s.TotalFailed != 1 || s.TotalSkipped != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.RemainingInQueue != 1 {
		t.Errorf("remaining = %d", s.RemainingInQueue)
	}
	if s.TotalDependenciesResolved != 3 {
		t.Errorf("dependencies = %d, want 3", s.TotalDependenciesResolved)
	}
	success, attempted := 2.0, 3.0
	if want := success / attempted * 100; s.SuccessRate != want {
		t.Errorf("success rate = %v, want %v", s.SuccessRate, want)
	}
	if s.ElapsedTimeSeconds != 90 {
		t.Errorf("elapsed = %v", s.ElapsedTimeSeconds)
	}
	if len(s.ProcessedFiles) != 3 {
		t.Errorf("processed files = %v", s.ProcessedFiles)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := New().Stats()
	if s.SuccessRate != 0 || s.ProcessedFiles == nil {
		t.Errorf("empty stats = %+v", s)
	}
}

func TestResumeRestoresQueueOrder(t *testing.T) {
	dir := t.TempDir()
	u := units(dir, "a.js", "b.js", "c.js", "d.js", "e.js")
	store := NewFileStore(filepath.Join(dir, ".uimigrate", "ledger.json"))
	ctx := context.Background()

	l := New()
	l.Enqueue(u...)
	for range 2 {
		p, _ := l.Dequeue()
		l.MarkSuccess(p, StatusSuccess, nil, nil)
	}
	if err := Save(ctx, store, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	resumed, err := Open(ctx, store)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, want := range u[2:] {
		got, ok := resumed.Dequeue()
		if !ok || got != want {
			t.Fatalf("Dequeue() = %q, want %q", got, want)
		}
	}
	for _, p := range u[:2] {
		if !resumed.IsProcessed(p) {
			t.Errorf("IsProcessed(%s) = false after resume", p)
		}
	}
	if resumed.RunID() != l.RunID() {
		t.Error("run id not restored")
	}
	if !resumed.Stats().MigrationStartTime.Equal(l.Stats().MigrationStartTime) {
		t.Error("start time not restored")
	}
}

func TestSnapshotPutsInFlightFirst(t *testing.T) {
	u := units(t.TempDir(), "a.js", "b.js", "c.js")
	l := New()
	l.Enqueue(u...)
	l.Dequeue()

	doc := l.Snapshot()
	if !reflect.DeepEqual(doc.ProcessingQueue, u) {
		t.Errorf("queue = %v, want %v", doc.ProcessingQueue, u)
	}
	resumed, err := FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := resumed.Dequeue(); got != u[0] {
		t.Errorf("first resumed unit = %s, want the interrupted one", got)
	}
}

func TestRelease(t *testing.T) {
	u := units(t.TempDir(), "a.js", "b.js")
	l := New()
	l.Enqueue(u...)
	p, _ := l.Dequeue()
	l.Release(p)
	if got := l.Queue(); !reflect.DeepEqual(got, u) {
		t.Errorf("Queue() = %v, want %v", got, u)
	}
}

func TestDrop(t *testing.T) {
	u := units(t.TempDir(), "a.js")
	l := New()
	l.Enqueue(u...)
	p, _ := l.Dequeue()
	l.Drop(p)
	if n := l.Stats().RemainingInQueue; n != 0 {
		t.Errorf("RemainingInQueue = %d after Drop, want 0", n)
	}
	if l.Enqueue(p) != 1 {
		t.Error("dropped path should be enqueueable again")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	u := units(dir, "a.js", "b.js", "c.js")
	store := NewFileStore(filepath.Join(dir, "ledger.json"))
	ctx := context.Background()

	l := New()
	l.Enqueue(u[2])
	l.MarkSuccess(u[0], StatusReviewNeeded, json.RawMessage(`{"status":"review_needed"}`), []string{u[1]})
	l.MarkFailed(u[1], "analysis: success factor 40.00 below threshold 85")
	l.MarkSkipped(filepath.Join(dir, "node_modules", "x.js"), "external resource")
	if err := Save(ctx, store, l); err != nil {
		t.Fatal(err)
	}

	first, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	reloaded, err := FromDocument(first)
	if err != nil {
		t.Fatal(err)
	}
	if err := Save(ctx, store, reloaded); err != nil {
		t.Fatal(err)
	}
	second, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.ProcessingQueue, second.ProcessingQueue) {
		t.Errorf("queue %v != %v", first.ProcessingQueue, second.ProcessingQueue)
	}
	for name, pair := range map[string][2]any{
		"processed": {first.ProcessedFiles, second.ProcessedFiles},
		"failed":    {first.FailedFiles, second.FailedFiles},
		"skipped":   {first.SkippedFiles, second.SkippedFiles},
	} {
		a, _ := json.Marshal(pair[0])
		b, _ := json.Marshal(pair[1])
		if string(a) != string(b) {
			t.Errorf("%s differs after round trip:\n%s\n%s", name, a, b)
		}
	}
	if first.RunID != second.RunID || !first.MigrationStartTime.Equal(second.MigrationStartTime) {
		t.Error("run metadata differs after round trip")
	}
}

func TestOpenMissingStore(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	if _, err := store.Load(context.Background()); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("Load() err = %v, want ErrNotFound", err)
	}
	l, err := Open(context.Background(), store)
	if err != nil || l.Len() != 0 {
		t.Errorf("Open() = %v, %v", l, err)
	}
	if err := store.Delete(context.Background()); err != nil {
		t.Errorf("Delete() on missing file = %v", err)
	}
}

func TestFromDocumentRejectsNewerVersion(t *testing.T) {
	if _, err := FromDocument(&Document{Version: DocumentVersion + 1}); err == nil {
		t.Error("FromDocument accepted a newer version")
	}
}

func TestSourceRootSurvivesSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "ledger.json"))
	ctx := context.Background()

	l := New()
	l.SetSourceRoot(filepath.Join(dir, "app"))
	l.SetSourceRoot("")
	l.Enqueue(filepath.Join(dir, "app", "Main.js"))
	if err := Save(ctx, store, l); err != nil {
		t.Fatal(err)
	}

	resumed, err := Open(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if got := resumed.SourceRoot(); got != filepath.Join(dir, "app") {
		t.Errorf("SourceRoot() = %q, want %q", got, filepath.Join(dir, "app"))
	}
	resumed.Clear()
	if resumed.SourceRoot() != "" {
		t.Error("Clear() kept the source root")
	}
}

func TestClear(t *testing.T) {
	u := units(t.TempDir(), "a.js", "b.js")
	l := New()
	id := l.RunID()
	l.Enqueue(u[0])
	l.MarkSuccess(u[1], StatusSuccess, nil, nil)
	l.Clear()
	if l.Len() != 0 || len(l.Processed()) != 0 || l.RunID() == id {
		t.Error("Clear() left state behind")
	}
}

func TestMongoRecordRoundTrip(t *testing.T) {
	u := units(t.TempDir(), "a.b.js", "c.js")
	l := New()
	l.SetSourceRoot(filepath.Dir(u[0]))
	l.MarkSuccess(u[0], StatusSuccess, nil, []string{u[1]})
	l.MarkFailed(u[1], "x")
	l.Enqueue(u[1])
	doc := l.Snapshot()

	got := toRecord("default", doc).document()
	if !reflect.DeepEqual(got.ProcessedFiles, doc.ProcessedFiles) ||
		!reflect.DeepEqual(got.FailedFiles, doc.FailedFiles) ||
		!reflect.DeepEqual(got.ProcessingQueue, doc.ProcessingQueue) ||
		got.SourceRoot != doc.SourceRoot {
		t.Errorf("record round trip mismatch:\n%+v\n%+v", got, doc)
	}
}

// Package ledger tracks which units a migration has processed and which are
// still waiting.
//
// A [Ledger] combines a FIFO work queue with three disposition partitions:
// processed, failed and skipped. Enqueue is idempotent (a path already queued,
// in flight or processed is ignored) and a later failure supersedes an
// earlier success. The whole ledger serializes to a [Document], which a
// [Store] persists after every unit so an interrupted batch resumes with the
// exact queue order and dedup state.
//
// # Concurrency
//
// All methods are safe for concurrent use. Dequeue moves a path to the
// in-flight set, so two workers never receive the same path; Snapshot puts
// in-flight paths back at the head of the persisted queue.
package ledger

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the disposition of a processed unit.
type Status string

const (
	// StatusSuccess means every phase was accepted.
	StatusSuccess Status = "success"

	// StatusReviewNeeded means the files were written but the advisory
	// placement score was below threshold.
	StatusReviewNeeded Status = "review_needed"
)

// Entry records a processed unit.
type Entry struct {
	Path         string          `json:"path" bson:"path"`
	FileName     string          `json:"file_name" bson:"file_name"`
	Status       Status          `json:"status" bson:"status"`
	ProcessedAt  time.Time       `json:"processed_at" bson:"processed_at"`
	Result       json.RawMessage `json:"result,omitempty" bson:"result,omitempty"`
	Dependencies []string        `json:"dependencies_resolved" bson:"dependencies_resolved"`

	// RetryCount is how many times the unit has been processed.
	RetryCount int `json:"retry_count" bson:"retry_count"`
}

// FailedEntry records a unit whose last attempt failed.
type FailedEntry struct {
	Path       string    `json:"path" bson:"path"`
	FileName   string    `json:"file_name" bson:"file_name"`
	Reason     string    `json:"reason" bson:"reason"`
	FailedAt   time.Time `json:"failed_at" bson:"failed_at"`
	RetryCount int       `json:"retry_count" bson:"retry_count"`
}

// SkippedEntry records a unit that was deliberately not processed.
type SkippedEntry struct {
	Path      string    `json:"path" bson:"path"`
	FileName  string    `json:"file_name" bson:"file_name"`
	Reason    string    `json:"reason" bson:"reason"`
	SkippedAt time.Time `json:"skipped_at" bson:"skipped_at"`
}

// Ledger is the work queue and processed-unit record of a migration run.
type Ledger struct {
	mu        sync.Mutex
	runID     string
	startedAt time.Time
	updatedAt time.Time

	// sourceRoot is the directory references were resolved against.
	sourceRoot string

	processed map[string]*Entry
	failed    map[string]*FailedEntry
	skipped   map[string]*SkippedEntry

	queue    []string
	queued   map[string]bool
	inFlight []string

	now func() time.Time
}

// New returns an empty ledger with a fresh run ID.
func New() *Ledger {
	l := &Ledger{now: time.Now}
	l.reset()
	return l
}

func (l *Ledger) reset() {
	l.runID = uuid.NewString()
	l.startedAt = l.now().UTC()
	l.updatedAt = l.startedAt
	l.sourceRoot = ""
	l.processed = make(map[string]*Entry)
	l.failed = make(map[string]*FailedEntry)
	l.skipped = make(map[string]*SkippedEntry)
	l.queue = nil
	l.queued = make(map[string]bool)
	l.inFlight = nil
}

// Canonical returns the identity of a unit path: absolute and cleaned.
func Canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// RunID identifies the run that created the ledger.
func (l *Ledger) RunID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runID
}

// SetSourceRoot records the directory the run resolves references against,
// so a resumed run uses the same one. An empty dir is ignored.
func (l *Ledger) SetSourceRoot(dir string) {
	if dir == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sourceRoot = Canonical(dir)
}

// SourceRoot returns the recorded resolver base, or "".
func (l *Ledger) SourceRoot() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sourceRoot
}

func (l *Ledger) touch() {
	l.updatedAt = l.now().UTC()
}

// =============================================================================
// Queue
// =============================================================================

// Enqueue appends paths to the tail of the queue, skipping any path that is
// already queued, in flight or processed. It returns how many were added.
func (l *Ledger) Enqueue(paths ...string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := 0
	for _, p := range paths {
		p = Canonical(p)
		if l.queued[p] || l.processed[p] != nil || l.isInFlight(p) {
			continue
		}
		l.queue = append(l.queue, p)
		l.queued[p] = true
		added++
	}
	if added > 0 {
		l.touch()
	}
	return added
}

// Dequeue removes and returns the head of the queue. The path stays in
// flight until it is marked or released.
func (l *Ledger) Dequeue() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return "", false
	}
	p := l.queue[0]
	l.queue = l.queue[1:]
	delete(l.queued, p)
	l.inFlight = append(l.inFlight, p)
	return p, true
}

// Release returns an in-flight path to the head of the queue without
// recording a disposition.
func (l *Ledger) Release(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	path = Canonical(path)
	if !l.dropInFlight(path) || l.queued[path] {
		return
	}
	l.queue = append([]string{path}, l.queue...)
	l.queued[path] = true
}

// Drop removes an in-flight path without recording a disposition or
// returning it to the queue.
func (l *Ledger) Drop(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropInFlight(Canonical(path))
}

func (l *Ledger) isInFlight(path string) bool {
	for _, p := range l.inFlight {
		if p == path {
			return true
		}
	}
	return false
}

func (l *Ledger) dropInFlight(path string) bool {
	for i, p := range l.inFlight {
		if p == path {
			l.inFlight = append(l.inFlight[:i], l.inFlight[i+1:]...)
			return true
		}
	}
	return false
}

// Queue returns the waiting paths in order, excluding in-flight ones.
func (l *Ledger) Queue() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.queue...)
}

// Len returns the number of waiting paths.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// =============================================================================
// Dispositions
// =============================================================================

// IsProcessed reports whether path has a processed record.
func (l *Ledger) IsProcessed(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed[Canonical(path)] != nil
}

func (l *Ledger) attempts(path string) int {
	if e := l.processed[path]; e != nil {
		return e.RetryCount
	}
	if e := l.failed[path]; e != nil {
		return e.RetryCount
	}
	return 0
}

// MarkSuccess records path as processed with status, replacing any failed
// record. The retry count carries over from earlier attempts.
func (l *Ledger) MarkSuccess(path string, status Status, result json.RawMessage, deps []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	path = Canonical(path)
	if status == "" {
		status = StatusSuccess
	}
	l.processed[path] = &Entry{
		Path:         path,
		FileName:     filepath.Base(path),
		Status:       status,
		ProcessedAt:  l.now().UTC(),
		Result:       result,
		Dependencies: append([]string{}, deps...),
		RetryCount:   l.attempts(path) + 1,
	}
	delete(l.failed, path)
	l.dropInFlight(path)
	l.touch()
}

// MarkFailed records path as failed and removes any processed record: a
// later failure supersedes an earlier success.
func (l *Ledger) MarkFailed(path, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	path = Canonical(path)
	l.failed[path] = &FailedEntry{
		Path:       path,
		FileName:   filepath.Base(path),
		Reason:     reason,
		FailedAt:   l.now().UTC(),
		RetryCount: l.attempts(path) + 1,
	}
	delete(l.processed, path)
	l.dropInFlight(path)
	l.touch()
}

// MarkSkipped records path as skipped. Skipped units are not removed from
// the queue; callers skip before enqueueing.
func (l *Ledger) MarkSkipped(path, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	path = Canonical(path)
	l.skipped[path] = &SkippedEntry{
		Path:      path,
		FileName:  filepath.Base(path),
		Reason:    reason,
		SkippedAt: l.now().UTC(),
	}
	l.dropInFlight(path)
	l.touch()
}

// RetryFailed re-enqueues failed units. With no paths every failed unit is
// re-enqueued, in path order. Failed records stay until the unit is
// processed again.
func (l *Ledger) RetryFailed(paths ...string) int {
	if len(paths) == 0 {
		for _, f := range l.Failed() {
			paths = append(paths, f.Path)
		}
	}
	l.mu.Lock()
	var eligible []string
	for _, p := range paths {
		if l.failed[Canonical(p)] != nil {
			eligible = append(eligible, p)
		}
	}
	l.mu.Unlock()
	return l.Enqueue(eligible...)
}

// Clear empties every partition and the queue and starts a new run.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset()
}

// Entry returns the processed record of path.
func (l *Ledger) Entry(path string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.processed[Canonical(path)]
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// Processed returns the processed records sorted by path.
func (l *Ledger) Processed() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.processed))
	for _, e := range l.processed {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Failed returns the failed records sorted by path.
func (l *Ledger) Failed() []FailedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]FailedEntry, 0, len(l.failed))
	for _, e := range l.failed {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Skipped returns the skipped records sorted by path.
func (l *Ledger) Skipped() []SkippedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SkippedEntry, 0, len(l.skipped))
	for _, e := range l.skipped {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

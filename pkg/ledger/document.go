package ledger

import (
	"sort"
	"time"

	"github.com/matzehuels/uimigrate/pkg/errors"
)

// DocumentVersion is the current persistence format version.
const DocumentVersion = 1

// Document is the persisted form of a Ledger.
type Document struct {
	Version            int                     `json:"version"`
	RunID              string                  `json:"run_id"`
	MigrationStartTime time.Time               `json:"migration_start_time"`
	LastUpdated        time.Time               `json:"last_updated"`
	SourceRoot         string                  `json:"source_root,omitempty"`
	ProcessedFiles     map[string]Entry        `json:"processed_files"`
	FailedFiles        map[string]FailedEntry  `json:"failed_files"`
	SkippedFiles       map[string]SkippedEntry `json:"skipped_files"`

	// ProcessingQueue holds in-flight paths first, then waiting paths.
	ProcessingQueue []string `json:"processing_queue"`

	// Statistics is derived; it is ignored when a document is loaded.
	Statistics Statistics `json:"statistics"`
}

// Statistics aggregates a ledger.
type Statistics struct {
	MigrationStartTime        time.Time      `json:"migration_start_time" bson:"migration_start_time"`
	ElapsedTimeSeconds        float64        `json:"elapsed_time_seconds" bson:"elapsed_time_seconds"`
	TotalProcessed            int            `json:"total_processed" bson:"total_processed"`
	TotalReviewNeeded         int            `json:"total_review_needed" bson:"total_review_needed"`
	TotalFailed               int            `json:"total_failed" bson:"total_failed"`
	TotalSkipped              int            `json:"total_skipped" bson:"total_skipped"`
	RemainingInQueue          int            `json:"remaining_in_queue" bson:"remaining_in_queue"`
	TotalDependenciesResolved int            `json:"total_dependencies_resolved" bson:"total_dependencies_resolved"`
	SuccessRate               float64        `json:"success_rate" bson:"success_rate"`
	ProcessedFiles            []string       `json:"processed_files" bson:"processed_files"`
	FailedFiles               []FailedEntry  `json:"failed_files" bson:"failed_files"`
	SkippedFiles              []SkippedEntry `json:"skipped_files" bson:"skipped_files"`
}

// Stats derives statistics. TotalProcessed counts success records only;
// review_needed records are processed but reported separately. The success
// rate is success / (success + failed) as a percentage.
func (l *Ledger) Stats() Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats()
}

func (l *Ledger) stats() Statistics {
	s := Statistics{
		MigrationStartTime: l.startedAt,
		ElapsedTimeSeconds: l.now().Sub(l.startedAt).Seconds(),
		TotalFailed:        len(l.failed),
		TotalSkipped:       len(l.skipped),
		RemainingInQueue:   len(l.queue) + len(l.inFlight),
		ProcessedFiles:     []string{},
		FailedFiles:        []FailedEntry{},
		SkippedFiles:       []SkippedEntry{},
	}
	deps := make(map[string]bool)
	for path, e := range l.processed {
		switch e.Status {
		case StatusSuccess:
			s.TotalProcessed++
		case StatusReviewNeeded:
			s.TotalReviewNeeded++
		}
		s.ProcessedFiles = append(s.ProcessedFiles, path)
		for _, d := range e.Dependencies {
			deps[d] = true
		}
	}
	s.TotalDependenciesResolved = len(deps)
	if total := s.TotalProcessed + s.TotalFailed; total > 0 {
		s.SuccessRate = float64(s.TotalProcessed) / float64(total) * 100
	}
	for _, e := range l.failed {
		s.FailedFiles = append(s.FailedFiles, *e)
	}
	for _, e := range l.skipped {
		s.SkippedFiles = append(s.SkippedFiles, *e)
	}
	sort.Strings(s.ProcessedFiles)
	sort.Slice(s.FailedFiles, func(i, j int) bool { return s.FailedFiles[i].Path < s.FailedFiles[j].Path })
	sort.Slice(s.SkippedFiles, func(i, j int) bool { return s.SkippedFiles[i].Path < s.SkippedFiles[j].Path })
	return s
}

// Snapshot returns the persisted form of the ledger. In-flight paths are
// placed at the head of the queue so a resumed run picks them up first.
func (l *Ledger) Snapshot() *Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc := &Document{
		Version:            DocumentVersion,
		RunID:              l.runID,
		MigrationStartTime: l.startedAt,
		LastUpdated:        l.updatedAt,
		SourceRoot:         l.sourceRoot,
		ProcessedFiles:     make(map[string]Entry, len(l.processed)),
		FailedFiles:        make(map[string]FailedEntry, len(l.failed)),
		SkippedFiles:       make(map[string]SkippedEntry, len(l.skipped)),
		ProcessingQueue:    make([]string, 0, len(l.inFlight)+len(l.queue)),
		Statistics:         l.stats(),
	}
	for k, e := range l.processed {
		doc.ProcessedFiles[k] = *e
	}
	for k, e := range l.failed {
		doc.FailedFiles[k] = *e
	}
	for k, e := range l.skipped {
		doc.SkippedFiles[k] = *e
	}
	doc.ProcessingQueue = append(doc.ProcessingQueue, l.inFlight...)
	doc.ProcessingQueue = append(doc.ProcessingQueue, l.queue...)
	return doc
}

// FromDocument rebuilds a ledger. The queue order is restored exactly;
// duplicate or already processed queue entries are dropped.
func FromDocument(doc *Document) (*Ledger, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "ledger document is nil")
	}
	if doc.Version > DocumentVersion {
		return nil, errors.New(errors.ErrCodeUnsupported, "ledger document version %d is newer than %d", doc.Version, DocumentVersion)
	}
	l := New()
	if doc.RunID != "" {
		l.runID = doc.RunID
	}
	if !doc.MigrationStartTime.IsZero() {
		l.startedAt = doc.MigrationStartTime
	}
	l.updatedAt = doc.LastUpdated
	l.sourceRoot = doc.SourceRoot
	for k, e := range doc.ProcessedFiles {
		if e.Path == "" {
			e.Path = k
		}
		l.processed[k] = &e
	}
	for k, e := range doc.FailedFiles {
		if e.Path == "" {
			e.Path = k
		}
		l.failed[k] = &e
	}
	for k, e := range doc.SkippedFiles {
		if e.Path == "" {
			e.Path = k
		}
		l.skipped[k] = &e
	}
	for _, p := range doc.ProcessingQueue {
		if l.queued[p] || l.processed[p] != nil {
			continue
		}
		l.queue = append(l.queue, p)
		l.queued[p] = true
	}
	return l, nil
}

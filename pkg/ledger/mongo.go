package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Defaults for MongoOptions.
const (
	DefaultMongoDatabase   = "uimigrate"
	DefaultMongoCollection = "ledgers"
	DefaultLedgerName      = "default"
)

// MongoOptions configures a MongoStore.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string

	// Name is the document ID; one collection can hold several ledgers.
	Name string
}

func (o MongoOptions) withDefaults() MongoOptions {
	if o.Database == "" {
		o.Database = DefaultMongoDatabase
	}
	if o.Collection == "" {
		o.Collection = DefaultMongoCollection
	}
	if o.Name == "" {
		o.Name = DefaultLedgerName
	}
	return o
}

// MongoStore keeps the ledger as a single MongoDB document keyed by name.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	opts   MongoOptions
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongo ledger: uri is required")
	}
	opts = opts.withDefaults()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
		opts:   opts,
	}, nil
}

// mongoRecord stores the partitions as arrays: unit paths contain dots,
// which do not make good document keys.
type mongoRecord struct {
	Name               string         `bson:"_id"`
	Version            int            `bson:"version"`
	RunID              string         `bson:"run_id"`
	MigrationStartTime time.Time      `bson:"migration_start_time"`
	LastUpdated        time.Time      `bson:"last_updated"`
	SourceRoot         string         `bson:"source_root"`
	Processed          []Entry        `bson:"processed_files"`
	Failed             []FailedEntry  `bson:"failed_files"`
	Skipped            []SkippedEntry `bson:"skipped_files"`
	Queue              []string       `bson:"processing_queue"`
	Statistics         Statistics     `bson:"statistics"`
}

func toRecord(name string, doc *Document) mongoRecord {
	rec := mongoRecord{
		Name:               name,
		Version:            doc.Version,
		RunID:              doc.RunID,
		MigrationStartTime: doc.MigrationStartTime,
		LastUpdated:        doc.LastUpdated,
		SourceRoot:         doc.SourceRoot,
		Processed:          make([]Entry, 0, len(doc.ProcessedFiles)),
		Failed:             make([]FailedEntry, 0, len(doc.FailedFiles)),
		Skipped:            make([]SkippedEntry, 0, len(doc.SkippedFiles)),
		Queue:              append([]string{}, doc.ProcessingQueue...),
		Statistics:         doc.Statistics,
	}
	for _, e := range doc.ProcessedFiles {
		rec.Processed = append(rec.Processed, e)
	}
	for _, e := range doc.FailedFiles {
		rec.Failed = append(rec.Failed, e)
	}
	for _, e := range doc.SkippedFiles {
		rec.Skipped = append(rec.Skipped, e)
	}
	sort.Slice(rec.Processed, func(i, j int) bool { return rec.Processed[i].Path < rec.Processed[j].Path })
	sort.Slice(rec.Failed, func(i, j int) bool { return rec.Failed[i].Path < rec.Failed[j].Path })
	sort.Slice(rec.Skipped, func(i, j int) bool { return rec.Skipped[i].Path < rec.Skipped[j].Path })
	return rec
}

func (r mongoRecord) document() *Document {
	doc := &Document{
		Version:            r.Version,
		RunID:              r.RunID,
		MigrationStartTime: r.MigrationStartTime,
		LastUpdated:        r.LastUpdated,
		SourceRoot:         r.SourceRoot,
		ProcessedFiles:     make(map[string]Entry, len(r.Processed)),
		FailedFiles:        make(map[string]FailedEntry, len(r.Failed)),
		SkippedFiles:       make(map[string]SkippedEntry, len(r.Skipped)),
		ProcessingQueue:    r.Queue,
		Statistics:         r.Statistics,
	}
	for _, e := range r.Processed {
		doc.ProcessedFiles[e.Path] = e
	}
	for _, e := range r.Failed {
		doc.FailedFiles[e.Path] = e
	}
	for _, e := range r.Skipped {
		doc.SkippedFiles[e.Path] = e
	}
	return doc
}

func (s *MongoStore) Load(ctx context.Context) (*Document, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": s.opts.Name}).Decode(&rec)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger %q: %w", s.opts.Name, err)
	}
	return rec.document(), nil
}

func (s *MongoStore) Save(ctx context.Context, doc *Document) error {
	rec := toRecord(s.opts.Name, doc)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": s.opts.Name}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save ledger %q: %w", s.opts.Name, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": s.opts.Name}); err != nil {
		return fmt.Errorf("delete ledger %q: %w", s.opts.Name, err)
	}
	return nil
}

// Location returns database/collection/name.
func (s *MongoStore) Location() string {
	return fmt.Sprintf("mongodb:%s/%s/%s", s.opts.Database, s.opts.Collection, s.opts.Name)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)

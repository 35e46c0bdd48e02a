package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPath is where the CLI keeps the ledger, relative to the working
// directory.
const DefaultPath = ".uimigrate/ledger.json"

// FileStore keeps the ledger as one indented JSON file. Writes go to a
// temporary file that is renamed into place, so a crash mid-write leaves the
// previous document intact.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore creates a store at path. An empty path uses DefaultPath.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	return &doc, nil
}

func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove ledger file: %w", err)
	}
	return nil
}

// Location returns the ledger file path.
func (s *FileStore) Location() string { return s.path }

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)

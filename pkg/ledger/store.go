package ledger

import (
	"context"
	stderrors "errors"

	"github.com/matzehuels/uimigrate/pkg/errors"
)

// ErrNotFound is returned by Store.Load when nothing has been saved yet.
var ErrNotFound = errors.New(errors.ErrCodeNotFound, "ledger not found")

// Store persists ledger documents.
type Store interface {
	// Load returns the saved document, or ErrNotFound.
	Load(ctx context.Context) (*Document, error)

	// Save replaces the saved document.
	Save(ctx context.Context, doc *Document) error

	// Delete removes the saved document. Deleting nothing is not an error.
	Delete(ctx context.Context) error

	// Location describes where documents are kept, for display.
	Location() string

	Close() error
}

// Open loads the ledger saved in store, or returns a new one when nothing
// has been saved.
func Open(ctx context.Context, store Store) (*Ledger, error) {
	doc, err := store.Load(ctx)
	if stderrors.Is(err, ErrNotFound) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// Save persists a snapshot of l to store.
func Save(ctx context.Context, store Store, l *Ledger) error {
	return store.Save(ctx, l.Snapshot())
}

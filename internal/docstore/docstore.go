// Package docstore is the source collaborator: listing collections and
// reading documents out of a semi-structured store.
//
// Implementations own the translation from store-native values into
// document.Value. A property whose runtime type cannot be classified is
// reported through the store's logger and omitted from the document; it
// never fails the surrounding read.
package docstore

import (
	"context"

	"doccopy/internal/document"
)

// Entry is one document paired with its store-assigned identifier.
type Entry struct {
	ID  string
	Doc document.Document
}

// Store reads documents from a source document store.
//
// ListDocuments is a snapshot bulk read: it returns every document in the
// collection at once, with no pagination contract. Enumeration order is
// whatever the store hands back; schema reproducibility across runs is
// best-effort because of that.
type Store interface {
	ListCollections(ctx context.Context) ([]string, error)
	ListDocuments(ctx context.Context, collection string) ([]Entry, error)
	Close(ctx context.Context) error
}

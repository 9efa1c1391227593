// Package docstore is a thin document-database abstraction: equality queries,
// inserts with store-assigned IDs and timestamps, reads and deletes.
// Firestore backs it in production; MemoryStore backs tests and local runs.
package docstore

import (
	"context"
	"errors"
	"time"
)

// CreatedAtField is the field the store fills with its own write timestamp on Insert.
const CreatedAtField = "timestamp"

// ErrNotFound is returned by Get and DeleteIf when the document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrReadAfterWrite is returned by a Tx read that follows a write in the
// same transaction. Firestore rejects that order, so MemoryStore does too.
var ErrReadAfterWrite = errors.New("transaction read after write")

// Document is a stored record. CreatedAt is nil when the timestamp field is
// missing or not yet resolved by the server.
type Document struct {
	ID        string
	CreatedAt *time.Time
	Fields    map[string]interface{}
}

// String returns the named field as a string, or "" when absent or not a string.
func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Int returns the named field as an int64, or 0 when absent or not numeric.
// Firestore hands integers back as int64; values written from Go may be int.
func (d Document) Int(field string) int64 {
	switch v := d.Fields[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Time returns the named field as a time, or the zero time when absent.
func (d Document) Time(field string) time.Time {
	t, _ := d.Fields[field].(time.Time)
	return t
}

// OptionalString returns the named field as *string, nil when absent or empty.
func (d Document) OptionalString(field string) *string {
	s, ok := d.Fields[field].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// Store is the remote document store used by repositories.
type Store interface {
	// Query returns every document in collection whose field equals value.
	// No ordering or limit is applied.
	Query(ctx context.Context, collection, field string, value interface{}) ([]Document, error)

	// Insert adds a document. The store assigns the ID and sets CreatedAtField.
	Insert(ctx context.Context, collection string, fields map[string]interface{}) (Document, error)

	// Get reads a single document, returning ErrNotFound if absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// DeleteIf reads the document and deletes it only if check returns nil,
	// atomically with respect to other writers. The check's error is returned unchanged.
	DeleteIf(ctx context.Context, collection, id string, check func(Document) error) error

	// RunTransaction runs fn so that its reads and writes apply atomically.
	// Writes take effect only if fn returns nil; fn's error is returned
	// unchanged. fn may run more than once under contention, so it must not
	// have effects outside tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of the store inside RunTransaction. Every read must come
// before the first write.
type Tx interface {
	// Get returns ErrNotFound if the document does not exist.
	Get(collection, id string) (Document, error)

	// Query is the transactional form of Store.Query.
	Query(collection, field string, value interface{}) ([]Document, error)

	// Set creates or replaces the document with the given ID. A time.Time in
	// CreatedAtField becomes the document's CreatedAt.
	Set(collection, id string, fields map[string]interface{}) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(collection, id string) error
}

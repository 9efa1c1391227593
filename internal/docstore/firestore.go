package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps an existing client. The caller owns the client and closes it.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Query runs a single-field equality query. Firestore serves these from its
// automatic single-field index, so no composite index is needed.
func (s *FirestoreStore) Query(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	snaps, err := s.client.Collection(collection).Where(field, "==", value).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s where %s: %w", collection, field, err)
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, fromSnapshot(snap))
	}
	return docs, nil
}

// Insert adds the document with a server timestamp. The write result's update
// time is the commit time, which is the value the server stored for the timestamp.
func (s *FirestoreStore) Insert(ctx context.Context, collection string, fields map[string]interface{}) (Document, error) {
	data := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data[CreatedAtField] = firestore.ServerTimestamp

	ref, wr, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return Document{}, fmt.Errorf("add to %s: %w", collection, err)
	}

	createdAt := wr.UpdateTime
	data[CreatedAtField] = createdAt
	return Document{ID: ref.ID, CreatedAt: &createdAt, Fields: data}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return fromSnapshot(snap), nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// DeleteIf runs the read, check and delete in one transaction.
func (s *FirestoreStore) DeleteIf(ctx context.Context, collection, id string, check func(Document) error) error {
	ref := s.client.Collection(collection).Doc(id)

	// RunTransaction returns the callback's error unchanged, so ErrNotFound
	// and the check's own error reach the caller as-is.
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return fmt.Errorf("get %s/%s: %w", collection, id, err)
		}
		if err := check(fromSnapshot(snap)); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
}

// RunTransaction maps onto a Firestore transaction, which retries fn when a
// document it read changes before commit.
func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{client: s.client, tx: tx})
	})
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (Document, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return fromSnapshot(snap), nil
}

func (t *firestoreTx) Query(collection, field string, value interface{}) ([]Document, error) {
	q := t.client.Collection(collection).Where(field, "==", value)
	snaps, err := t.tx.Documents(q).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s where %s: %w", collection, field, err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, fromSnapshot(snap))
	}
	return docs, nil
}

func (t *firestoreTx) Set(collection, id string, fields map[string]interface{}) error {
	return t.tx.Set(t.client.Collection(collection).Doc(id), fields)
}

func (t *firestoreTx) Delete(collection, id string) error {
	return t.tx.Delete(t.client.Collection(collection).Doc(id))
}

func fromSnapshot(snap *firestore.DocumentSnapshot) Document {
	data := snap.Data()
	doc := Document{ID: snap.Ref.ID, Fields: data}
	if ts, ok := data[CreatedAtField].(time.Time); ok {
		doc.CreatedAt = &ts
	}
	return doc
}

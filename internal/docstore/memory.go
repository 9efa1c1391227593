package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Query returns documents in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	now         func() time.Time
}

type memCollection struct {
	docs  map[string]Document
	order []string
}

// NewMemoryStore creates an empty store stamping inserts with time.Now.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		now:         time.Now,
	}
}

// SetClock overrides the timestamp source used by Insert.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Put stores doc as-is, keeping its ID and CreatedAt (which may be nil).
// Used to seed fixtures, including documents whose server timestamp has not resolved.
func (s *MemoryStore) Put(collection string, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	fields := copyFields(doc.Fields)
	if doc.CreatedAt != nil {
		fields[CreatedAtField] = *doc.CreatedAt
	}
	doc.Fields = fields
	s.put(collection, doc)
}

func (s *MemoryStore) Query(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(collection, field, value), nil
}

func (s *MemoryStore) query(collection, field string, value interface{}) []Document {
	c, ok := s.collections[collection]
	if !ok {
		return []Document{}
	}
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		doc := c.docs[id]
		if doc.Fields[field] == value {
			docs = append(docs, cloneDoc(doc))
		}
	}
	return docs
}

func (s *MemoryStore) Insert(ctx context.Context, collection string, fields map[string]interface{}) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now()
	data := copyFields(fields)
	data[CreatedAtField] = createdAt

	doc := Document{ID: uuid.NewString(), CreatedAt: &createdAt, Fields: data}
	s.put(collection, doc)
	return cloneDoc(doc), nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.get(collection, id)
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(collection, id)
	return nil
}

func (s *MemoryStore) DeleteIf(ctx context.Context, collection, id string, check func(Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.get(collection, id)
	if !ok {
		return ErrNotFound
	}
	if err := check(cloneDoc(doc)); err != nil {
		return err
	}
	s.remove(collection, id)
	return nil
}

// RunTransaction holds the store lock for the whole of fn, so transactions
// never interleave. Buffered writes are applied only when fn returns nil.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, w := range tx.writes {
		if w.delete {
			s.remove(w.collection, w.id)
			continue
		}
		doc := Document{ID: w.id, Fields: w.fields}
		if ts, ok := w.fields[CreatedAtField].(time.Time); ok {
			doc.CreatedAt = &ts
		}
		s.put(w.collection, doc)
	}
	return nil
}

type memWrite struct {
	collection string
	id         string
	fields     map[string]interface{}
	delete     bool
}

// memTx runs with the store lock held by RunTransaction.
type memTx struct {
	store  *MemoryStore
	writes []memWrite
}

func (t *memTx) Get(collection, id string) (Document, error) {
	if len(t.writes) > 0 {
		return Document{}, ErrReadAfterWrite
	}
	doc, ok := t.store.get(collection, id)
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (t *memTx) Query(collection, field string, value interface{}) ([]Document, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	return t.store.query(collection, field, value), nil
}

func (t *memTx) Set(collection, id string, fields map[string]interface{}) error {
	t.writes = append(t.writes, memWrite{collection: collection, id: id, fields: copyFields(fields)})
	return nil
}

func (t *memTx) Delete(collection, id string) error {
	t.writes = append(t.writes, memWrite{collection: collection, id: id, delete: true})
	return nil
}

// Len returns the number of documents in a collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collection]; ok {
		return len(c.docs)
	}
	return 0
}

func (s *MemoryStore) put(collection string, doc Document) {
	c, ok := s.collections[collection]
	if !ok {
		c = &memCollection{docs: make(map[string]Document)}
		s.collections[collection] = c
	}
	if _, exists := c.docs[doc.ID]; !exists {
		c.order = append(c.order, doc.ID)
	}
	c.docs[doc.ID] = doc
}

func (s *MemoryStore) get(collection, id string) (Document, bool) {
	c, ok := s.collections[collection]
	if !ok {
		return Document{}, false
	}
	doc, ok := c.docs[id]
	return doc, ok
}

func (s *MemoryStore) remove(collection, id string) {
	c, ok := s.collections[collection]
	if !ok {
		return
	}
	if _, exists := c.docs[id]; !exists {
		return
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func cloneDoc(doc Document) Document {
	out := Document{ID: doc.ID, Fields: copyFields(doc.Fields)}
	if doc.CreatedAt != nil {
		ts := *doc.CreatedAt
		out.CreatedAt = &ts
	}
	return out
}

// Package memory provides an in-memory document store. It is intended for
// testing and development.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/keep/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a thread-safe in-memory document store. Documents are kept in
// insertion order per collection.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	order []string
	docs  map[string]*entry
}

type entry struct {
	partitionKey string
	version      int64
	body         bson.Raw
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context, _ ...string) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

func (s *Store) Get(_ context.Context, col string, key store.Key) (bson.Raw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(col, key)
	if e == nil {
		return nil, fmt.Errorf("%s/%s: %w", col, key.ID, store.ErrNotFound)
	}
	return copyRaw(e.body), nil
}

func (s *Store) Insert(_ context.Context, col string, doc store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(col)
	if _, ok := c.docs[doc.Key.ID]; ok {
		return fmt.Errorf("%s/%s: %w", col, doc.Key.ID, store.ErrDuplicateID)
	}
	if err := c.checkUnique(doc); err != nil {
		return fmt.Errorf("%s/%s: %w", col, doc.Key.ID, err)
	}
	c.docs[doc.Key.ID] = &entry{
		partitionKey: doc.Key.PartitionKey,
		version:      doc.Version,
		body:         copyRaw(doc.Body),
	}
	c.order = append(c.order, doc.Key.ID)
	return nil
}

func (s *Store) Replace(_ context.Context, col string, doc store.Document, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(col, doc.Key)
	if e == nil {
		return fmt.Errorf("%s/%s: %w", col, doc.Key.ID, store.ErrNotFound)
	}
	if expectedVersion != 0 && e.version != expectedVersion {
		return fmt.Errorf("%s/%s: version %d, expected %d: %w",
			col, doc.Key.ID, e.version, expectedVersion, store.ErrPreconditionFailed)
	}
	if err := s.collections[col].checkUnique(doc); err != nil {
		return fmt.Errorf("%s/%s: %w", col, doc.Key.ID, err)
	}
	e.version = doc.Version
	e.body = copyRaw(doc.Body)
	return nil
}

func (s *Store) Delete(_ context.Context, col string, key store.Key, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(col, key)
	if e == nil {
		return fmt.Errorf("%s/%s: %w", col, key.ID, store.ErrNotFound)
	}
	if expectedVersion != 0 && e.version != expectedVersion {
		return fmt.Errorf("%s/%s: version %d, expected %d: %w",
			col, key.ID, e.version, expectedVersion, store.ErrPreconditionFailed)
	}
	c := s.collections[col]
	delete(c.docs, key.ID)
	c.order = slices.DeleteFunc(c.order, func(id string) bool { return id == key.ID })
	return nil
}

func (s *Store) Query(_ context.Context, col string, q *store.Query) ([]bson.Raw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[col]
	if !ok {
		return nil, nil
	}
	var out []bson.Raw
	for _, id := range c.order {
		e := c.docs[id]
		if !store.Matches(e.body, q) {
			continue
		}
		out = append(out, copyRaw(e.body))
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of documents in col.
func (s *Store) Len(col string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[col]; ok {
		return len(c.order)
	}
	return 0
}

// lookup returns the entry at key or nil. Callers hold s.mu.
func (s *Store) lookup(col string, key store.Key) *entry {
	c, ok := s.collections[col]
	if !ok {
		return nil
	}
	e, ok := c.docs[key.ID]
	if !ok || e.partitionKey != key.PartitionKey {
		return nil
	}
	return e
}

// collection returns col, creating it on first write. Callers hold s.mu.
func (s *Store) collection(col string) *collection {
	c, ok := s.collections[col]
	if !ok {
		c = &collection{docs: make(map[string]*entry)}
		s.collections[col] = c
	}
	return c
}

// checkUnique rejects doc if another document already holds one of its
// unique element tuples.
func (c *collection) checkUnique(doc store.Document) error {
	for _, u := range store.Unique {
		for _, key := range u.Keys(doc.Body) {
			q := u.Query(key)
			for id, e := range c.docs {
				if id != doc.Key.ID && store.Matches(e.body, q) {
					return fmt.Errorf("%s %v held by %s: %w", u.Array, key, id, store.ErrDuplicateKey)
				}
			}
		}
	}
	return nil
}

func copyRaw(b bson.Raw) bson.Raw {
	return append(bson.Raw(nil), b...)
}

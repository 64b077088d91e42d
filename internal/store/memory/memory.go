// Package memory implements the store contracts in process memory.
// It backs the single-user desktop profile and the test suites.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/store"
)

type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
	blobs       *blobStore
	unique      map[string][]string
}

// New builds an empty in-memory store. Unique constraints mirror the
// indexes the postgres driver declares in DDL.
func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		blobs:       newBlobStore(),
		unique: map[string][]string{
			store.CollPatients: {"socialId"},
			store.CollUsers:    {"username"},
		},
	}
}

func (s *Store) Collection(name string) store.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &collection{unique: s.unique[name]}
		s.collections[name] = c
	}
	return c
}

func (s *Store) Blobs() store.BlobStore {
	return s.blobs
}

type collection struct {
	mu     sync.RWMutex
	docs   []model.Document
	unique []string
}

func matches(doc model.Document, filter model.Document) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		if r, isRange := want.(store.Range); isRange {
			n, ok := toInt64(got)
			if !ok || n < r.From || n > r.To {
				return false
			}
			continue
		}
		if !looselyEqual(got, want) {
			return false
		}
	}
	return true
}

// looselyEqual compares scalars across the numeric widths JSON
// round-trips produce.
func looselyEqual(a, b interface{}) bool {
	if a == b {
		return true
	}
	an, aok := toInt64(a)
	bn, bok := toInt64(b)
	if aok && bok {
		return an == bn
	}
	return false
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func clone(doc model.Document) model.Document {
	out := make(model.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func (c *collection) InsertOne(_ context.Context, doc model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, field := range c.unique {
		want, ok := doc[field]
		if !ok {
			continue
		}
		for _, existing := range c.docs {
			if looselyEqual(existing[field], want) {
				return store.ErrDuplicate
			}
		}
	}
	c.docs = append(c.docs, clone(doc))
	return nil
}

func (c *collection) FindOne(_ context.Context, filter model.Document) (model.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.docs {
		if matches(doc, filter) {
			return clone(doc), nil
		}
	}
	return nil, store.ErrNoDocuments
}

func (c *collection) Find(_ context.Context, filter model.Document, opts store.FindOptions) ([]model.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.Document
	for _, doc := range c.docs {
		if matches(doc, filter) {
			out = append(out, clone(doc))
		}
	}

	if opts.SortField != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := toInt64(out[i][opts.SortField])
			b, _ := toInt64(out[j][opts.SortField])
			if opts.Ascending {
				return a < b
			}
			return a > b
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= len(out) {
			return nil, nil
		}
		out = out[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (c *collection) UpdateOne(_ context.Context, filter model.Document, set model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, doc := range c.docs {
		if !matches(doc, filter) {
			continue
		}
		for _, field := range c.unique {
			want, ok := set[field]
			if !ok {
				continue
			}
			for j, other := range c.docs {
				if j != i && looselyEqual(other[field], want) {
					return store.ErrDuplicate
				}
			}
		}
		updated := clone(doc)
		for k, v := range set {
			updated[k] = v
		}
		c.docs[i] = updated
		return nil
	}
	return store.ErrNoDocuments
}

func (c *collection) DeleteOne(_ context.Context, filter model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, doc := range c.docs {
		if matches(doc, filter) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return nil
		}
	}
	return store.ErrNoDocuments
}

func (c *collection) DeleteMany(_ context.Context, filter model.Document) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kept []model.Document
	var removed int64
	for _, doc := range c.docs {
		if matches(doc, filter) {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return removed, nil
}

func (c *collection) EstimatedCount(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.docs)), nil
}

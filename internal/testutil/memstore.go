// Package testutil provides an in-memory store.Store for exercising the
// transfer, backup and CLI flows without a database.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BartekS5/marketsync/internal/store"
	"go.mongodb.org/mongo-driver/bson"
)

type memCollection struct {
	docs    []bson.Raw
	ids     map[string]bool
	indexes []string
}

// MemoryStore keeps collections in memory. Operations can be made to fail
// per collection with Fail. Writes and Reads count calls so tests can prove
// a store was left alone.
type MemoryStore struct {
	mu     sync.Mutex
	label  string
	colls  map[string]*memCollection
	errs   map[string]error
	writes int
	reads  int
}

var _ store.Store = (*MemoryStore)(nil)

func NewMemoryStore(label string) *MemoryStore {
	return &MemoryStore{
		label: label,
		colls: make(map[string]*memCollection),
		errs:  make(map[string]error),
	}
}

// Seed creates collection (even with no documents) and appends docs.
// Duplicate ids panic since seeds are test fixtures.
func (s *MemoryStore) Seed(collection string, docs ...bson.D) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection, true)
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		if err != nil {
			panic(err)
		}
		id := idKey(raw)
		if c.ids[id] {
			panic(fmt.Sprintf("duplicate seed id in %s", collection))
		}
		c.ids[id] = true
		c.docs = append(c.docs, raw)
	}
	return s
}

// Index records index names on collection, creating it if needed.
func (s *MemoryStore) Index(collection string, names ...string) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(collection, true)
	c.indexes = append(c.indexes, names...)
	return s
}

// Fail makes op ("exists", "count", "scan", "delete", "insert", "rename",
// "drop", "createlike") on collection return err. A failing scan still
// delivers every batch first, like a cursor that breaks at the end.
// "writeconcern" applies an insert and then returns err, like a server that
// wrote the documents but could not satisfy the write concern. Rename is
// keyed by its destination and createlike by its template.
func (s *MemoryStore) Fail(op, collection string, err error) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op+":"+collection] = err
	return s
}

// Docs returns a copy of the documents in collection.
func (s *MemoryStore) Docs(collection string) []bson.Raw {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.colls[collection]
	if !ok {
		return nil
	}
	return append([]bson.Raw(nil), c.docs...)
}

// Collections lists the collections that exist, sorted.
func (s *MemoryStore) Collections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.colls))
	for n := range s.colls {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Indexes returns the index names recorded on collection.
func (s *MemoryStore) Indexes(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.colls[collection]
	if !ok {
		return nil
	}
	return append([]string(nil), c.indexes...)
}

func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *MemoryStore) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *MemoryStore) Label() string {
	return s.label
}

func (s *MemoryStore) Exists(_ context.Context, collection string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if err := s.errs["exists:"+collection]; err != nil {
		return false, err
	}
	_, ok := s.colls[collection]
	return ok, nil
}

func (s *MemoryStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if err := s.errs["count:"+collection]; err != nil {
		return 0, err
	}
	c, ok := s.colls[collection]
	if !ok {
		return 0, nil
	}
	return int64(len(c.docs)), nil
}

func (s *MemoryStore) Scan(ctx context.Context, collection string, batchSize int, fn func(batch []bson.Raw) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	docs := s.Docs(collection)
	s.mu.Lock()
	s.reads++
	scanErr := s.errs["scan:"+collection]
	s.mu.Unlock()

	for start := 0; start < len(docs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(docs))
		batch := make([]bson.Raw, 0, end-start)
		for _, d := range docs[start:end] {
			batch = append(batch, append(bson.Raw(nil), d...))
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return scanErr
}

func (s *MemoryStore) DeleteAll(_ context.Context, collection string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["delete:"+collection]; err != nil {
		return 0, err
	}
	s.writes++
	c, ok := s.colls[collection]
	if !ok {
		return 0, nil
	}
	n := int64(len(c.docs))
	c.docs = nil
	c.ids = make(map[string]bool)
	return n, nil
}

// InsertUnordered rejects documents whose _id is already present with code
// 11000, as the server does.
func (s *MemoryStore) InsertUnordered(_ context.Context, collection string, docs []bson.Raw) (store.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["insert:"+collection]; err != nil {
		return store.InsertResult{}, err
	}
	if len(docs) == 0 {
		return store.InsertResult{}, nil
	}
	s.writes++

	c := s.collection(collection, true)
	var res store.InsertResult
	for i, d := range docs {
		id := idKey(d)
		if c.ids[id] {
			res.Failures = append(res.Failures, store.DocFailure{
				Index:   i,
				Code:    11000,
				Message: fmt.Sprintf("E11000 duplicate key error collection: %s index: _id_", collection),
			})
			continue
		}
		c.ids[id] = true
		c.docs = append(c.docs, append(bson.Raw(nil), d...))
		res.Inserted++
	}
	return res, s.errs["writeconcern:"+collection]
}

func (s *MemoryStore) CreateLike(_ context.Context, collection, template string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["createlike:"+template]; err != nil {
		return err
	}
	t, ok := s.colls[template]
	if !ok {
		return nil
	}
	s.writes++
	c := s.collection(collection, true)
	c.indexes = append([]string(nil), t.indexes...)
	return nil
}

func (s *MemoryStore) Rename(_ context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["rename:"+to]; err != nil {
		return err
	}
	c, ok := s.colls[from]
	if !ok {
		return fmt.Errorf("source namespace %s does not exist", from)
	}
	s.writes++
	s.colls[to] = c
	delete(s.colls, from)
	return nil
}

func (s *MemoryStore) Drop(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["drop:"+collection]; err != nil {
		return err
	}
	s.writes++
	delete(s.colls, collection)
	return nil
}

func (s *MemoryStore) collection(name string, create bool) *memCollection {
	c, ok := s.colls[name]
	if !ok && create {
		c = &memCollection{ids: make(map[string]bool)}
		s.colls[name] = c
	}
	return c
}

func idKey(raw bson.Raw) string {
	v := raw.Lookup("_id")
	return string(rune(v.Type)) + string(v.Value)
}

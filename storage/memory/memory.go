// Package memory provides an in-memory implementation of the storage
// Adapter. It is suitable for development, testing, and single-instance
// deployments.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/apifest/authstore/storage"
)

// Store is an in-memory document store. Documents are kept per
// collection, keyed by their primary key. All operations run under a
// single lock, which makes FindOneAndSet trivially atomic.
type Store struct {
	mu     sync.RWMutex
	colls  map[string]map[string]storage.Record
	logger *slog.Logger
	closed bool
}

var _ storage.Adapter = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		colls:  make(map[string]map[string]storage.Record),
		logger: slog.Default(),
	}
}

// SetLogger sets a custom logger.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

func (s *Store) collection(name string) map[string]storage.Record {
	coll, ok := s.colls[name]
	if !ok {
		coll = make(map[string]storage.Record)
		s.colls[name] = coll
	}
	return coll
}

// Insert persists a new document, assigning a primary key when the
// record carries none.
func (s *Store) Insert(ctx context.Context, collection string, rec storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := maps.Clone(rec)
	id, ok := stored[storage.IDField].(string)
	if !ok || id == "" {
		id = uuid.NewString()
		stored[storage.IDField] = id
	}

	s.collection(collection)[id] = stored
	s.logger.Debug("inserted record", "collection", collection)
	return nil
}

// FindOne returns a single document matching the filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter storage.Filter) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.colls[collection] {
		if storage.Matches(rec, filter) {
			return maps.Clone(rec), nil
		}
	}
	return nil, storage.ErrNotFound
}

// FindMany returns every document matching the filter.
func (s *Store) FindMany(ctx context.Context, collection string, filter storage.Filter) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Record
	for _, rec := range s.colls[collection] {
		if storage.Matches(rec, filter) {
			out = append(out, maps.Clone(rec))
		}
	}
	return out, nil
}

// UpdateOne replaces the first document matching the filter.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter storage.Filter, rec storage.Record, upsert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	for id, existing := range coll {
		if storage.Matches(existing, filter) {
			stored := maps.Clone(rec)
			// Replacement keeps the document's identity.
			stored[storage.IDField] = id
			coll[id] = stored
			return nil
		}
	}

	if !upsert {
		return storage.ErrNotFound
	}
	return s.insertLocked(collection, rec)
}

func (s *Store) insertLocked(collection string, rec storage.Record) error {
	stored := maps.Clone(rec)
	id, ok := stored[storage.IDField].(string)
	if !ok || id == "" {
		id = uuid.NewString()
		stored[storage.IDField] = id
	}
	s.collection(collection)[id] = stored
	return nil
}

// FindOneAndSet atomically finds one matching document and sets the
// given fields on it, returning the pre-update document.
func (s *Store) FindOneAndSet(ctx context.Context, collection string, filter storage.Filter, fields storage.Record) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock() // write lock for the whole find-and-mutate
	defer s.mu.Unlock()

	coll := s.colls[collection]
	for id, rec := range coll {
		if !storage.Matches(rec, filter) {
			continue
		}
		prev := maps.Clone(rec)
		updated := maps.Clone(rec)
		for field, value := range fields {
			updated[field] = value
		}
		coll[id] = updated
		return prev, nil
	}
	return nil, storage.ErrNotFound
}

// Ping reports whether the store is usable.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return context.Canceled
	}
	return ctx.Err()
}

// Close marks the store closed. Held documents are released.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.colls = make(map[string]map[string]storage.Record)
	return nil
}

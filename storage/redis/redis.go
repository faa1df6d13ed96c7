// Package redis provides a Redis-backed implementation of the storage
// Adapter. Documents are stored as JSON strings under
// "<prefix><collection>:<id>" keys and located with SCAN, so the
// backend needs no schema. The atomic find-and-set uses an optimistic
// WATCH/MULTI transaction on the matched key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/apifest/authstore/storage"
)

const (
	// DefaultKeyPrefix is the default prefix for all keys.
	DefaultKeyPrefix = "authstore:"

	// scanBatchSize is the number of keys fetched per SCAN iteration.
	scanBatchSize = 100

	// casRetries bounds the optimistic retry loop in FindOneAndSet.
	casRetries = 8
)

// Config holds configuration for the Redis storage backend.
type Config struct {
	// Addr is the Redis server address (required), e.g. "localhost:6379".
	Addr string

	// Password is the optional Redis password.
	Password string

	// DB is the optional database number (default 0).
	DB int

	// KeyPrefix is the prefix for all keys (default "authstore:").
	KeyPrefix string

	// Logger is the optional structured logger (default slog.Default()).
	Logger *slog.Logger
}

// Store is a Redis-backed document store.
type Store struct {
	client *goredis.Client
	prefix string
	logger *slog.Logger
}

var _ storage.Adapter = (*Store)(nil)

// New creates a new Redis-backed store and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Debug("connected to redis", "addr", cfg.Addr, "prefix", prefix)
	return &Store{client: client, prefix: prefix, logger: logger}, nil
}

// NewFromClient wraps an existing client, mainly for tests.
func NewFromClient(client *goredis.Client, prefix string, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) key(collection, id string) string {
	return s.prefix + collection + ":" + id
}

func (s *Store) pattern(collection string) string {
	return s.prefix + collection + ":*"
}

// Insert persists a new document, assigning a primary key when the
// record carries none.
func (s *Store) Insert(ctx context.Context, collection string, rec storage.Record) error {
	stored := make(storage.Record, len(rec)+1)
	for field, value := range rec {
		stored[field] = value
	}
	id, ok := stored[storage.IDField].(string)
	if !ok || id == "" {
		id = uuid.NewString()
		stored[storage.IDField] = id
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return storage.NewStorageError("insert", collection, err)
	}
	if err := s.client.Set(ctx, s.key(collection, id), data, 0).Err(); err != nil {
		return storage.NewStorageError("insert", collection, err)
	}

	s.logger.Debug("inserted record", "collection", collection)
	return nil
}

// FindOne returns a single document matching the filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter storage.Filter) (storage.Record, error) {
	// Fast path: a filter on the primary key needs no SCAN.
	if id, ok := filter[storage.IDField].(string); ok && len(filter) == 1 {
		rec, err := s.get(ctx, s.key(collection, id))
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	var found storage.Record
	err := s.scan(ctx, collection, func(key string, rec storage.Record) (bool, error) {
		if storage.Matches(rec, filter) {
			found = rec
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, storage.NewStorageError("findOne", collection, err)
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	return found, nil
}

// FindMany returns every document matching the filter.
func (s *Store) FindMany(ctx context.Context, collection string, filter storage.Filter) ([]storage.Record, error) {
	var out []storage.Record
	err := s.scan(ctx, collection, func(key string, rec storage.Record) (bool, error) {
		if storage.Matches(rec, filter) {
			out = append(out, rec)
		}
		return true, nil
	})
	if err != nil {
		return nil, storage.NewStorageError("findMany", collection, err)
	}
	return out, nil
}

// UpdateOne replaces the first document matching the filter.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter storage.Filter, rec storage.Record, upsert bool) error {
	key, existing, err := s.findKey(ctx, collection, filter)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return storage.NewStorageError("updateOne", collection, err)
	}
	if errors.Is(err, storage.ErrNotFound) {
		if !upsert {
			return storage.ErrNotFound
		}
		return s.Insert(ctx, collection, rec)
	}

	stored := make(storage.Record, len(rec)+1)
	for field, value := range rec {
		stored[field] = value
	}
	// Replacement keeps the document's identity.
	stored[storage.IDField] = existing[storage.IDField]

	data, err := json.Marshal(stored)
	if err != nil {
		return storage.NewStorageError("updateOne", collection, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return storage.NewStorageError("updateOne", collection, err)
	}
	return nil
}

// FindOneAndSet atomically finds one matching document and sets the
// given fields on it, returning the pre-update document. The key is
// WATCHed between read and write, so a concurrent writer forces a
// retry; only one concurrent caller can observe a given pre-update
// state.
func (s *Store) FindOneAndSet(ctx context.Context, collection string, filter storage.Filter, fields storage.Record) (storage.Record, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		key, _, err := s.findKey(ctx, collection, filter)
		if err != nil {
			return nil, storage.NewStorageError("findOneAndSet", collection, err)
		}

		var prev storage.Record
		err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
			data, err := tx.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, goredis.Nil) {
					return storage.ErrNotFound
				}
				return err
			}

			var rec storage.Record
			if err := json.Unmarshal([]byte(data), &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			// The document may have changed since the scan; the
			// filter must still hold inside the transaction.
			if !storage.Matches(rec, filter) {
				return storage.ErrNotFound
			}

			updated := make(storage.Record, len(rec))
			for field, value := range rec {
				updated[field] = value
			}
			for field, value := range fields {
				updated[field] = value
			}
			out, err := json.Marshal(updated)
			if err != nil {
				return fmt.Errorf("failed to marshal record: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, out, 0)
				return nil
			})
			if err == nil {
				prev = rec
			}
			return err
		}, key)

		if errors.Is(err, goredis.TxFailedErr) {
			continue // lost the race on this key, rescan
		}
		if err != nil {
			return nil, storage.NewStorageError("findOneAndSet", collection, err)
		}
		return prev, nil
	}
	return nil, storage.NewStorageError("findOneAndSet", collection, fmt.Errorf("too much contention"))
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}

// get fetches and decodes a single key, mapping redis.Nil to ErrNotFound.
func (s *Store) get(ctx context.Context, key string) (storage.Record, error) {
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	var rec storage.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

// scan iterates a collection's keys, invoking fn per decoded document
// until fn returns false. SCAN can return duplicates across
// iterations, so keys are tracked and visited once.
func (s *Store) scan(ctx context.Context, collection string, fn func(key string, rec storage.Record) (bool, error)) error {
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.pattern(collection), scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", collection, err)
		}

		for _, key := range keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			rec, err := s.get(ctx, key)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue // deleted between SCAN and GET
				}
				if strings.Contains(err.Error(), "unmarshal") {
					s.logger.Warn("skipping undecodable record", "key", key, "error", err)
					continue
				}
				return err
			}

			cont, err := fn(key, rec)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// findKey locates the first key whose document matches the filter.
func (s *Store) findKey(ctx context.Context, collection string, filter storage.Filter) (string, storage.Record, error) {
	if id, ok := filter[storage.IDField].(string); ok && len(filter) == 1 {
		key := s.key(collection, id)
		rec, err := s.get(ctx, key)
		if err != nil {
			return "", nil, err
		}
		return key, rec, nil
	}

	var foundKey string
	var foundRec storage.Record
	err := s.scan(ctx, collection, func(key string, rec storage.Record) (bool, error) {
		if storage.Matches(rec, filter) {
			foundKey, foundRec = key, rec
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return "", nil, err
	}
	if foundKey == "" {
		return "", nil, storage.ErrNotFound
	}
	return foundKey, foundRec, nil
}

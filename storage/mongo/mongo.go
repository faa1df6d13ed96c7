// Package mongo provides a MongoDB-backed implementation of the
// storage Adapter. Records map one-to-one onto BSON documents, so the
// on-disk layout matches the collections described in the storage
// package (clients, authCodes, accessTokens, scopes, keyed by _id).
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apifest/authstore/storage"
)

const (
	// DefaultDatabase is the database name used when none is configured.
	DefaultDatabase = "apifest"

	// connectTimeout bounds the initial connection verification.
	connectTimeout = 5 * time.Second
)

// Config holds configuration for the MongoDB storage backend.
type Config struct {
	// URI is the MongoDB connection string (required),
	// e.g. "mongodb://localhost:27017".
	URI string

	// Database is the database name (default "apifest").
	Database string

	// Logger is the optional structured logger (default slog.Default()).
	Logger *slog.Logger
}

// Store is a MongoDB-backed document store.
type Store struct {
	client *mongodriver.Client
	db     *mongodriver.Database
	logger *slog.Logger
}

var _ storage.Adapter = (*Store)(nil)

// New creates a new MongoDB-backed store and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}

	database := cfg.Database
	if database == "" {
		database = DefaultDatabase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongodriver.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Debug("connected to mongodb", "database", database)
	return &Store{
		client: client,
		db:     client.Database(database),
		logger: logger,
	}, nil
}

// Insert persists a new document. MongoDB assigns an ObjectId when the
// record carries no _id.
func (s *Store) Insert(ctx context.Context, collection string, rec storage.Record) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, bson.M(rec)); err != nil {
		return storage.NewStorageError("insert", collection, err)
	}
	s.logger.Debug("inserted record", "collection", collection)
	return nil
}

// FindOne returns a single document matching the filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter storage.Filter) (storage.Record, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M(filter)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.NewStorageError("findOne", collection, err)
	}
	return normalize(doc), nil
}

// FindMany returns every document matching the filter.
func (s *Store) FindMany(ctx context.Context, collection string, filter storage.Filter) ([]storage.Record, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M(filter))
	if err != nil {
		return nil, storage.NewStorageError("findMany", collection, err)
	}
	defer cursor.Close(ctx)

	var out []storage.Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, storage.NewStorageError("findMany", collection, err)
		}
		out = append(out, normalize(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, storage.NewStorageError("findMany", collection, err)
	}
	return out, nil
}

// UpdateOne replaces the first document matching the filter.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter storage.Filter, rec storage.Record, upsert bool) error {
	opts := options.Replace().SetUpsert(upsert)
	res, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M(filter), bson.M(rec), opts)
	if err != nil {
		return storage.NewStorageError("updateOne", collection, err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FindOneAndSet atomically finds one matching document and sets the
// given fields on it. MongoDB's findAndModify returns the pre-update
// document, which is exactly the contract the Adapter requires.
func (s *Store) FindOneAndSet(ctx context.Context, collection string, filter storage.Filter, fields storage.Record) (storage.Record, error) {
	var doc bson.M
	err := s.db.Collection(collection).
		FindOneAndUpdate(ctx, bson.M(filter), bson.M{"$set": bson.M(fields)}).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.NewStorageError("findOneAndSet", collection, err)
	}
	return normalize(doc), nil
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// normalize converts BSON-specific value types into the generic forms
// the codec understands: primitive.A becomes []any and ObjectIds
// become their hex string.
func normalize(doc bson.M) storage.Record {
	rec := make(storage.Record, len(doc))
	for field, value := range doc {
		switch v := value.(type) {
		case primitive.A:
			rec[field] = []any(v)
		case primitive.ObjectID:
			rec[field] = v.Hex()
		case primitive.DateTime:
			rec[field] = int64(v)
		default:
			rec[field] = value
		}
	}
	return rec
}

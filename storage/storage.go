package storage

import "context"

// Collection names used by the authorization core. Every backend maps
// these to its own namespace (Mongo collections, Redis key prefixes,
// rows in the Postgres documents table).
const (
	CollectionClients      = "clients"
	CollectionAuthCodes    = "authCodes"
	CollectionAccessTokens = "accessTokens"
	CollectionScopes       = "scopes"
)

// IDField is the primary-key field name shared by all backends.
const IDField = "_id"

// Record is a generic document: flat string keys, scalar or
// list-valued fields. The core's codec converts domain entities to and
// from Records; backends persist them without interpreting the fields.
type Record = map[string]any

// Filter selects documents by exact field equality. All entries must
// match for a document to be selected.
type Filter = map[string]any

// Adapter is the narrow document-store contract the authorization core
// requires (point lookup, filtered lookup, atomic single-document
// update). Implementations are provided in subpackages:
//   - storage/memory: in-memory store for development and testing
//   - storage/mongo: MongoDB-backed store
//   - storage/redis: Redis-backed store
//   - storage/postgres: PostgreSQL jsonb-backed store
//
// All methods accept context.Context; backends are expected to honor
// deadlines so no call blocks indefinitely.
type Adapter interface {
	// Insert persists a new document. The backend assigns the primary
	// key when the record carries no IDField entry.
	Insert(ctx context.Context, collection string, rec Record) error

	// FindOne returns a single document matching the filter, or
	// ErrNotFound. When several documents match, any one of them may
	// be returned; callers that need uniqueness guarantees use
	// FindMany and check the match count themselves.
	FindOne(ctx context.Context, collection string, filter Filter) (Record, error)

	// FindMany returns every document matching the filter. An empty
	// filter returns the whole collection. Order is unspecified.
	FindMany(ctx context.Context, collection string, filter Filter) ([]Record, error)

	// UpdateOne replaces the first document matching the filter with
	// rec. With upsert true a missing document is created instead;
	// with upsert false a missing document yields ErrNotFound.
	UpdateOne(ctx context.Context, collection string, filter Filter, rec Record, upsert bool) error

	// FindOneAndSet atomically finds one document matching the filter
	// and sets the given fields on it, returning the document as it
	// was BEFORE the update. Returns ErrNotFound when nothing matches.
	//
	// Atomicity is per document: at most one concurrent caller can
	// observe a given pre-update state. The core relies on this for
	// single-use authorization codes.
	FindOneAndSet(ctx context.Context, collection string, filter Filter, fields Record) (Record, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection. The adapter must not be
	// used afterwards.
	Close(ctx context.Context) error
}

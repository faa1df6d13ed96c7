// Package storage defines the document-store contract backing the
// authorization core: the Adapter interface, the generic Record and
// Filter types, and the sentinel errors shared by all backends.
//
// The core never talks to a database driver directly; it composes its
// credential, authorization-code, token, and scope protocols on top of
// the four Adapter primitives (insert, filtered lookup, single-document
// replace, atomic find-and-set).
//
// Implementations are provided in subpackages:
//   - storage/memory: in-memory store for development and testing
//   - storage/mongo: MongoDB-backed store
//   - storage/redis: Redis-backed store
//   - storage/postgres: PostgreSQL jsonb-backed store
package storage

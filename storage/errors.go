package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all backends. Absence is always signaled
// with ErrNotFound so callers can test with errors.Is regardless of
// which backend is configured.
var (
	// ErrNotFound indicates no document matched the filter.
	ErrNotFound = errors.New("record not found")

	// ErrConsistency indicates more documents matched a unique-key
	// filter than expected. The store never picks one arbitrarily.
	ErrConsistency = errors.New("multiple records matched a unique filter")
)

// StorageError wraps a backend failure (I/O, timeout, serialization)
// with the operation and collection it occurred in. It is always
// surfaced to the caller, never swallowed.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s on %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err unless it is nil or one of the sentinel
// errors above, which pass through unchanged.
func NewStorageError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConsistency) {
		return err
	}
	return &StorageError{Op: op, Collection: collection, Err: err}
}

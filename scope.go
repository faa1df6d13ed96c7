package authstore

import (
	"context"
	"time"

	"github.com/apifest/authstore/storage"
)

// StoreScope upserts a scope definition by name: an existing scope is
// replaced entirely, an unknown one is created. Repeated upserts of
// the same name leave exactly one record.
func (s *Store) StoreScope(ctx context.Context, scope *Scope) error {
	ctx, span := s.startStorageSpan(ctx, "store_scope")
	startTime := time.Now()

	err := s.adapter.UpdateOne(ctx, storage.CollectionScopes,
		storage.Filter{storage.IDField: scope.Name}, encodeScope(scope), true)
	s.recordStorageOperation(ctx, span, "store_scope", err, startTime)
	span.End()

	if err != nil {
		return err
	}
	s.logger.Debug("scope stored", "scope", scope.Name)
	return nil
}

// FindScope looks up a scope definition by name. Returns
// storage.ErrNotFound when absent, the same signal as every other
// lookup in this package.
func (s *Store) FindScope(ctx context.Context, name string) (*Scope, error) {
	ctx, span := s.startStorageSpan(ctx, "find_scope")
	startTime := time.Now()

	rec, err := s.adapter.FindOne(ctx, storage.CollectionScopes, storage.Filter{storage.IDField: name})
	s.recordStorageOperation(ctx, span, "find_scope", err, startTime)
	span.End()

	if err != nil {
		return nil, err
	}
	return decodeScope(rec), nil
}

// AllScopes returns a point-in-time snapshot of every scope
// definition, in store-defined order.
func (s *Store) AllScopes(ctx context.Context) ([]*Scope, error) {
	ctx, span := s.startStorageSpan(ctx, "all_scopes")
	startTime := time.Now()

	recs, err := s.adapter.FindMany(ctx, storage.CollectionScopes, storage.Filter{})
	s.recordStorageOperation(ctx, span, "all_scopes", err, startTime)
	span.End()

	if err != nil {
		return nil, err
	}

	scopes := make([]*Scope, 0, len(recs))
	for _, rec := range recs {
		scopes = append(scopes, decodeScope(rec))
	}
	return scopes, nil
}

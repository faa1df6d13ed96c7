package authstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apifest/authstore/internal/util"
	"github.com/apifest/authstore/storage"
)

// StoreAccessToken persists an access token and its paired refresh
// token (when present) as one valid record. Because the pair shares a
// single document, revocation through either lookup path covers both.
func (s *Store) StoreAccessToken(ctx context.Context, token *AccessToken) error {
	token.Valid = true
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	stored := *token
	var err error
	if stored.Details, err = s.encryptor.Encrypt(stored.Details); err != nil {
		return fmt.Errorf("failed to encrypt token details: %w", err)
	}

	ctx, span := s.startStorageSpan(ctx, "store_access_token")
	startTime := time.Now()

	err = s.adapter.Insert(ctx, storage.CollectionAccessTokens, encodeAccessToken(&stored))
	s.recordStorageOperation(ctx, span, "store_access_token", err, startTime)
	span.End()

	if err != nil {
		return err
	}

	if m := s.metrics(); m != nil {
		m.RecordTokenIssued(ctx, token.ClientID)
	}
	s.logger.Debug("access token stored",
		"client_id", token.ClientID,
		"token_prefix", util.SafeTruncate(token.Token, 8))
	return nil
}

// FindAccessToken looks up a valid access token by its token value.
// Absence yields storage.ErrNotFound. More than one match on a unique
// key is a store-consistency violation: the operation reports
// storage.ErrConsistency and never picks a record arbitrarily.
func (s *Store) FindAccessToken(ctx context.Context, token string) (*AccessToken, error) {
	return s.findToken(ctx, "find_access_token", storage.Filter{
		fieldToken: token,
		fieldValid: true,
	})
}

// FindAccessTokenByRefreshToken looks up a valid token record by its
// refresh token, scoped to the issuing client: a refresh token is not
// redeemable by any other client, so a foreign clientId yields
// storage.ErrNotFound even when the refresh token exists. Multi-match
// is storage.ErrConsistency, the same policy as FindAccessToken.
func (s *Store) FindAccessTokenByRefreshToken(ctx context.Context, refreshToken, clientID string) (*AccessToken, error) {
	return s.findToken(ctx, "find_access_token_by_refresh_token", storage.Filter{
		fieldRefreshToken: refreshToken,
		fieldClientID:     clientID,
		fieldValid:        true,
	})
}

func (s *Store) findToken(ctx context.Context, operation string, filter storage.Filter) (*AccessToken, error) {
	ctx, span := s.startStorageSpan(ctx, operation)
	startTime := time.Now()

	recs, err := s.adapter.FindMany(ctx, storage.CollectionAccessTokens, filter)
	switch {
	case err == nil && len(recs) == 0:
		err = storage.ErrNotFound
	case err == nil && len(recs) > 1:
		err = fmt.Errorf("%w: %d access token records match a unique filter",
			storage.ErrConsistency, len(recs))
	}
	s.recordStorageOperation(ctx, span, operation, err, startTime)
	span.End()

	if err != nil {
		return nil, err
	}

	token := decodeAccessToken(recs[0])
	if token.Details, err = s.encryptor.Decrypt(token.Details); err != nil {
		return nil, fmt.Errorf("failed to decrypt token details: %w", err)
	}
	return token, nil
}

// SetAccessTokenValid sets the validity flag on the token record.
// Unknown tokens are a no-op, not an error, so revocation is
// idempotent.
func (s *Store) SetAccessTokenValid(ctx context.Context, token string, valid bool) error {
	ctx, span := s.startStorageSpan(ctx, "set_access_token_valid")
	startTime := time.Now()

	rec, err := s.adapter.FindOneAndSet(ctx, storage.CollectionAccessTokens,
		storage.Filter{fieldToken: token},
		storage.Record{fieldValid: valid})
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
		rec = nil
	}
	s.recordStorageOperation(ctx, span, "set_access_token_valid", err, startTime)
	span.End()

	if err != nil {
		return err
	}
	if rec == nil {
		s.logger.Debug("access token validity change skipped, token unknown",
			"token_prefix", util.SafeTruncate(token, 8))
		return nil
	}

	if !valid {
		if m := s.metrics(); m != nil {
			m.RecordTokenRevoked(ctx, asString(rec[fieldClientID]))
		}
	}
	s.logger.Debug("access token validity updated",
		"token_prefix", util.SafeTruncate(token, 8),
		"valid", valid)
	return nil
}

// RevokeAccessToken invalidates the token record, which revokes both
// the access token and its paired refresh token.
func (s *Store) RevokeAccessToken(ctx context.Context, token string) error {
	return s.SetAccessTokenValid(ctx, token, false)
}

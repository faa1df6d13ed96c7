package authstore

import (
	"context"
	"errors"
	"time"

	"github.com/apifest/authstore/internal/util"
	"github.com/apifest/authstore/storage"
)

// StoreAuthCode persists a newly issued authorization code with
// valid set to true. The surrogate storage id is assigned by the
// adapter when the code carries none.
func (s *Store) StoreAuthCode(ctx context.Context, code *AuthCode) error {
	code.Valid = true
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}

	ctx, span := s.startStorageSpan(ctx, "store_auth_code")
	startTime := time.Now()

	err := s.adapter.Insert(ctx, storage.CollectionAuthCodes, encodeAuthCode(code))
	s.recordStorageOperation(ctx, span, "store_auth_code", err, startTime)
	span.End()

	if err != nil {
		return err
	}

	if m := s.metrics(); m != nil {
		m.RecordCodeIssued(ctx, code.ClientID)
	}
	s.logger.Debug("authorization code stored",
		"client_id", code.ClientID,
		"code_prefix", util.SafeTruncate(code.Code, 8))
	return nil
}

// FindAuthCode looks up a redeemable authorization code. Validity and
// the exact redirectUri are hard filter conditions: a used code or a
// URI mismatch both yield storage.ErrNotFound, never a record.
//
// This is a read-only check; redemption itself must go through
// RedeemAuthCode so the single-use transition is atomic.
func (s *Store) FindAuthCode(ctx context.Context, code, redirectURI string) (*AuthCode, error) {
	ctx, span := s.startStorageSpan(ctx, "find_auth_code")
	startTime := time.Now()

	rec, err := s.adapter.FindOne(ctx, storage.CollectionAuthCodes, storage.Filter{
		fieldCode:        code,
		fieldRedirectURI: redirectURI,
		fieldValid:       true,
	})
	s.recordStorageOperation(ctx, span, "find_auth_code", err, startTime)
	span.End()

	if err != nil {
		return nil, err
	}
	return decodeAuthCode(rec), nil
}

// RedeemAuthCode atomically looks up a valid authorization code and
// invalidates it in a single storage operation. Of any number of
// concurrent redemptions of the same code, exactly one receives the
// code; the rest get storage.ErrNotFound. The returned AuthCode
// reflects the state at redemption (Valid is true).
func (s *Store) RedeemAuthCode(ctx context.Context, code, redirectURI string) (*AuthCode, error) {
	ctx, span := s.startStorageSpan(ctx, "redeem_auth_code")
	startTime := time.Now()

	rec, err := s.adapter.FindOneAndSet(ctx, storage.CollectionAuthCodes,
		storage.Filter{
			fieldCode:        code,
			fieldRedirectURI: redirectURI,
			fieldValid:       true,
		},
		storage.Record{fieldValid: false})
	s.recordStorageOperation(ctx, span, "redeem_auth_code", err, startTime)
	span.End()

	if err != nil {
		return nil, err
	}

	authCode := decodeAuthCode(rec)
	if m := s.metrics(); m != nil {
		m.RecordCodeRedeemed(ctx, authCode.ClientID)
	}
	s.logger.Debug("authorization code redeemed",
		"client_id", authCode.ClientID,
		"code_prefix", util.SafeTruncate(code, 8))
	return authCode, nil
}

// InvalidateAuthCode marks an authorization code as used. It is
// idempotent: invalidating an already-invalid or unknown code is a
// no-op, not an error.
func (s *Store) InvalidateAuthCode(ctx context.Context, code string) error {
	ctx, span := s.startStorageSpan(ctx, "invalidate_auth_code")
	startTime := time.Now()

	_, err := s.adapter.FindOneAndSet(ctx, storage.CollectionAuthCodes,
		storage.Filter{fieldCode: code, fieldValid: true},
		storage.Record{fieldValid: false})
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	s.recordStorageOperation(ctx, span, "invalidate_auth_code", err, startTime)
	span.End()

	if err != nil {
		return err
	}
	s.logger.Debug("authorization code invalidated",
		"code_prefix", util.SafeTruncate(code, 8))
	return nil
}

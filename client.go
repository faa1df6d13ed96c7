package authstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apifest/authstore/internal/util"
	"github.com/apifest/authstore/security"
	"github.com/apifest/authstore/storage"
)

// CreateClient persists a new client application. The caller is
// responsible for supplying a collision-free clientId; use
// NewClientCredentials to generate one.
func (s *Store) CreateClient(ctx context.Context, creds *ClientCredentials) error {
	ctx, span := s.startStorageSpan(ctx, "create_client")
	startTime := time.Now()

	err := s.createClient(ctx, creds)
	s.recordStorageOperation(ctx, span, "create_client", err, startTime)
	span.End()

	if err != nil {
		return err
	}

	if m := s.metrics(); m != nil {
		m.RecordClientRegistered(ctx)
	}
	s.logger.Debug("client application registered",
		"client_id", creds.ID,
		"name", creds.Name)
	return nil
}

func (s *Store) createClient(ctx context.Context, creds *ClientCredentials) error {
	stored := *creds
	var err error
	if s.hashedSecrets {
		stored.Secret, err = security.HashSecret(creds.Secret)
		if err != nil {
			return fmt.Errorf("failed to prepare client secret: %w", err)
		}
	}
	if stored.Secret, err = s.encryptor.Encrypt(stored.Secret); err != nil {
		return fmt.Errorf("failed to encrypt client secret: %w", err)
	}

	return s.adapter.Insert(ctx, storage.CollectionClients, encodeClient(&stored))
}

// FindClient looks up a client application by clientId. Returns
// storage.ErrNotFound when no such client exists.
func (s *Store) FindClient(ctx context.Context, clientID string) (*ClientCredentials, error) {
	ctx, span := s.startStorageSpan(ctx, "find_client")
	startTime := time.Now()

	rec, err := s.adapter.FindOne(ctx, storage.CollectionClients, storage.Filter{storage.IDField: clientID})
	s.recordStorageOperation(ctx, span, "find_client", err, startTime)
	span.End()

	if err != nil {
		return nil, err
	}

	creds := decodeClient(rec)
	if creds.Secret, err = s.encryptor.Decrypt(creds.Secret); err != nil {
		return nil, fmt.Errorf("failed to decrypt client secret: %w", err)
	}
	return creds, nil
}

// ValidateClient checks the presented secret against the stored one.
// It returns false, never an error, when the client does not exist or
// the secret mismatches; a storage failure is the only error path.
// The comparison is constant-time (bcrypt in hashed-secrets mode).
func (s *Store) ValidateClient(ctx context.Context, clientID, secret string) (bool, error) {
	if s.limiter != nil && !s.limiter.Allow(clientID) {
		if m := s.metrics(); m != nil {
			m.RecordRateLimitExceeded(ctx, "client_validation")
		}
		s.logger.Warn("client validation rate limit exceeded",
			"client_id", util.SafeTruncate(clientID, 8))
		return false, nil
	}

	creds, err := s.FindClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var ok bool
	if s.hashedSecrets {
		ok = security.CheckHashedSecret(creds.Secret, secret)
	} else {
		ok = security.SecretsEqual(creds.Secret, secret)
	}

	if !ok {
		if m := s.metrics(); m != nil {
			m.RecordClientValidationFailed(ctx, "secret_mismatch")
		}
		s.logger.Warn("client secret mismatch",
			"client_id", util.SafeTruncate(clientID, 8))
	}
	return ok, nil
}

// UpdateClientApp partially updates a client application: scope,
// description, and status are each applied only when supplied (a nil
// status means unchanged). Returns false when no such client exists.
//
// The update replaces the whole record, so concurrent updates to
// disjoint fields are last-write-wins.
func (s *Store) UpdateClientApp(ctx context.Context, clientID, scope, description string, status *int) (bool, error) {
	creds, err := s.FindClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if scope != "" {
		creds.Scope = util.NormalizeScope(scope)
	}
	if description != "" {
		creds.Description = description
	}
	if status != nil {
		creds.Status = *status
	}

	// The loaded secret is already hashed in hashed-secrets mode, so
	// only re-encryption is needed before writing back.
	stored := *creds
	if stored.Secret, err = s.encryptor.Encrypt(stored.Secret); err != nil {
		return false, fmt.Errorf("failed to encrypt client secret: %w", err)
	}

	ctx, span := s.startStorageSpan(ctx, "update_client")
	startTime := time.Now()

	err = s.adapter.UpdateOne(ctx, storage.CollectionClients,
		storage.Filter{storage.IDField: clientID}, encodeClient(&stored), false)
	s.recordStorageOperation(ctx, span, "update_client", err, startTime)
	span.End()

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	s.logger.Debug("client application updated", "client_id", clientID)
	return true, nil
}

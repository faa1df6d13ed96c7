package authstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apifest/authstore/storage"
)

func TestStore_AccessTokenLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := NewAccessToken("abc", "basic", 3600)
	if err := store.StoreAccessToken(ctx, token); err != nil {
		t.Fatalf("StoreAccessToken() error = %v", err)
	}

	got, err := store.FindAccessToken(ctx, token.Token)
	if err != nil {
		t.Fatalf("FindAccessToken() error = %v", err)
	}
	if got.ClientID != "abc" || got.RefreshToken != token.RefreshToken || !got.Valid {
		t.Errorf("FindAccessToken() = %+v, want the stored token", got)
	}

	if err := store.RevokeAccessToken(ctx, token.Token); err != nil {
		t.Fatalf("RevokeAccessToken() error = %v", err)
	}
	if _, err := store.FindAccessToken(ctx, token.Token); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindAccessToken() after revocation error = %v, want ErrNotFound", err)
	}
}

func TestStore_RevokeAccessToken_CoversRefreshToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := NewAccessToken("abc", "basic", 3600)
	if err := store.StoreAccessToken(ctx, token); err != nil {
		t.Fatalf("StoreAccessToken() error = %v", err)
	}

	if err := store.RevokeAccessToken(ctx, token.Token); err != nil {
		t.Fatalf("RevokeAccessToken() error = %v", err)
	}

	// The pair shares one record: the refresh-token path must also
	// observe the revocation.
	_, err := store.FindAccessTokenByRefreshToken(ctx, token.RefreshToken, "abc")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindAccessTokenByRefreshToken() after revocation error = %v, want ErrNotFound", err)
	}
}

func TestStore_FindAccessTokenByRefreshToken_ClientScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := NewAccessToken("abc", "basic", 3600)
	if err := store.StoreAccessToken(ctx, token); err != nil {
		t.Fatalf("StoreAccessToken() error = %v", err)
	}

	got, err := store.FindAccessTokenByRefreshToken(ctx, token.RefreshToken, "abc")
	if err != nil {
		t.Fatalf("FindAccessTokenByRefreshToken() error = %v", err)
	}
	if got.Token != token.Token {
		t.Errorf("FindAccessTokenByRefreshToken() token = %q, want %q", got.Token, token.Token)
	}

	// A foreign client must not redeem someone else's refresh token.
	_, err = store.FindAccessTokenByRefreshToken(ctx, token.RefreshToken, "other")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign-client lookup error = %v, want ErrNotFound", err)
	}
}

func TestStore_FindAccessToken_DuplicateIsConsistencyError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Two records with the same token value simulate a corrupted store.
	for i := 0; i < 2; i++ {
		tok := NewAccessToken("abc", "basic", 3600)
		tok.Token = "dup-token"
		if err := store.StoreAccessToken(ctx, tok); err != nil {
			t.Fatalf("StoreAccessToken() error = %v", err)
		}
	}

	_, err := store.FindAccessToken(ctx, "dup-token")
	if !errors.Is(err, storage.ErrConsistency) {
		t.Errorf("FindAccessToken() with duplicates error = %v, want ErrConsistency", err)
	}
}

func TestStore_FindAccessTokenByRefreshToken_DuplicateIsConsistencyError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		tok := NewAccessToken("abc", "basic", 3600)
		tok.RefreshToken = "dup-refresh"
		if err := store.StoreAccessToken(ctx, tok); err != nil {
			t.Fatalf("StoreAccessToken() error = %v", err)
		}
	}

	_, err := store.FindAccessTokenByRefreshToken(ctx, "dup-refresh", "abc")
	if !errors.Is(err, storage.ErrConsistency) {
		t.Errorf("refresh lookup with duplicates error = %v, want ErrConsistency", err)
	}
}

func TestStore_SetAccessTokenValid_UnknownTokenNoop(t *testing.T) {
	store := newTestStore(t)

	if err := store.SetAccessTokenValid(context.Background(), "missing", false); err != nil {
		t.Errorf("SetAccessTokenValid(unknown) error = %v, want nil", err)
	}
}

func TestAccessToken_ValidUntil(t *testing.T) {
	token := NewAccessToken("abc", "basic", 3600)

	want := token.CreatedAt.Add(time.Hour)
	if !token.ValidUntil().Equal(want) {
		t.Errorf("ValidUntil() = %v, want %v", token.ValidUntil(), want)
	}
	if token.Expired() {
		t.Error("fresh one-hour token reported expired")
	}

	token.ExpiresIn = "garbage"
	if !token.ValidUntil().IsZero() {
		t.Error("malformed expiresIn should yield the zero deadline")
	}
	if token.Expired() {
		t.Error("zero deadline should never expire")
	}
}

func TestAccessToken_OAuth2(t *testing.T) {
	token := NewAccessToken("abc", "basic", 3600)

	o := token.OAuth2()
	if o.AccessToken != token.Token || o.RefreshToken != token.RefreshToken {
		t.Error("OAuth2() should carry token and refresh token values")
	}
	if o.TokenType != TokenTypeBearer {
		t.Errorf("OAuth2() TokenType = %q, want %q", o.TokenType, TokenTypeBearer)
	}
	if !o.Expiry.Equal(token.ValidUntil()) {
		t.Errorf("OAuth2() Expiry = %v, want %v", o.Expiry, token.ValidUntil())
	}
}

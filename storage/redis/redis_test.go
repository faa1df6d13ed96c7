package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/apifest/authstore/internal/testutil"
	"github.com/apifest/authstore/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewFromClient(client, "test:", nil)
}

func TestStore_InsertAndFindOne(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := storage.Record{storage.IDField: "abc", "secret": "s3cret", "name": "App"}
	if err := store.Insert(ctx, storage.CollectionClients, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.FindOne(ctx, storage.CollectionClients, storage.Filter{storage.IDField: "abc"})
	if err != nil {
		t.Fatalf("FindOne() error = %v", err)
	}
	if got["secret"] != "s3cret" {
		t.Errorf("secret = %v, want %q", got["secret"], "s3cret")
	}
}

func TestStore_FindOne_ByNonKeyFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := storage.Record{"code": "c1", "redirectUri": "https://cb", "valid": true}
	if err := store.Insert(ctx, storage.CollectionAuthCodes, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.FindOne(ctx, storage.CollectionAuthCodes,
		storage.Filter{"code": "c1", "redirectUri": "https://cb", "valid": true})
	if err != nil {
		t.Fatalf("FindOne() error = %v", err)
	}
	if got["code"] != "c1" {
		t.Errorf("code = %v, want %q", got["code"], "c1")
	}

	_, err = store.FindOne(ctx, storage.CollectionAuthCodes,
		storage.Filter{"code": "c1", "redirectUri": "https://other", "valid": true})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindOne() with mismatched redirectUri error = %v, want ErrNotFound", err)
	}
}

func TestStore_FindMany(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, rec := range []storage.Record{
		{"token": "t1", "clientId": "c1", "valid": true},
		{"token": "t2", "clientId": "c1", "valid": true},
		{"token": "t3", "clientId": "c2", "valid": true},
	} {
		if err := store.Insert(ctx, storage.CollectionAccessTokens, rec); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := store.FindMany(ctx, storage.CollectionAccessTokens, storage.Filter{"clientId": "c1"})
	if err != nil {
		t.Fatalf("FindMany() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("FindMany() returned %d records, want 2", len(got))
	}
}

func TestStore_UpdateOne_UpsertCreatesAndReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.UpdateOne(ctx, storage.CollectionScopes,
		storage.Filter{storage.IDField: "basic"},
		storage.Record{storage.IDField: "basic", "description": "first"}, true)
	if err != nil {
		t.Fatalf("UpdateOne() upsert-create error = %v", err)
	}

	err = store.UpdateOne(ctx, storage.CollectionScopes,
		storage.Filter{storage.IDField: "basic"},
		storage.Record{storage.IDField: "basic", "description": "second"}, true)
	if err != nil {
		t.Fatalf("UpdateOne() upsert-replace error = %v", err)
	}

	all, err := store.FindMany(ctx, storage.CollectionScopes, storage.Filter{})
	if err != nil {
		t.Fatalf("FindMany() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("FindMany() returned %d records, want 1", len(all))
	}
	if all[0]["description"] != "second" {
		t.Errorf("description = %v, want %q", all[0]["description"], "second")
	}
}

func TestStore_UpdateOne_NoMatchNoUpsert(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateOne(context.Background(), storage.CollectionScopes,
		storage.Filter{storage.IDField: "missing"},
		storage.Record{storage.IDField: "missing"}, false)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateOne() error = %v, want ErrNotFound", err)
	}
}

func TestStore_FindOneAndSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := storage.Record{"code": "c1", "redirectUri": "https://cb", "valid": true}
	if err := store.Insert(ctx, storage.CollectionAuthCodes, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	prev, err := store.FindOneAndSet(ctx, storage.CollectionAuthCodes,
		storage.Filter{"code": "c1", "valid": true},
		storage.Record{"valid": false})
	if err != nil {
		t.Fatalf("FindOneAndSet() error = %v", err)
	}
	if prev["valid"] != true {
		t.Error("FindOneAndSet() should return the pre-update document")
	}

	// A second invalidation finds no valid document.
	_, err = store.FindOneAndSet(ctx, storage.CollectionAuthCodes,
		storage.Filter{"code": "c1", "valid": true},
		storage.Record{"valid": false})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second FindOneAndSet() error = %v, want ErrNotFound", err)
	}
}

func TestStore_RoundTripsDomainRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	client := testutil.TestClientRecord("abc")
	testutil.AssertNoError(t, store.Insert(ctx, storage.CollectionClients, client))
	token := testutil.TestAccessTokenRecord("t1", "r1", "abc")
	testutil.AssertNoError(t, store.Insert(ctx, storage.CollectionAccessTokens, token))

	gotClient, err := store.FindOne(ctx, storage.CollectionClients, storage.Filter{storage.IDField: "abc"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, gotClient["secret"], client["secret"])

	gotToken, err := store.FindOne(ctx, storage.CollectionAccessTokens,
		storage.Filter{"refreshToken": "r1", "clientId": "abc", "valid": true})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, gotToken["token"], "t1")
}

func TestStore_NumbersSurviveJSONRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := storage.Record{storage.IDField: "abc", "status": 1}
	if err := store.Insert(ctx, storage.CollectionClients, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	// Numeric filter values must match the float64 JSON produces.
	got, err := store.FindOne(ctx, storage.CollectionClients, storage.Filter{"status": 1})
	if err != nil {
		t.Fatalf("FindOne() with numeric filter error = %v", err)
	}
	if got[storage.IDField] != "abc" {
		t.Errorf("unexpected record: %v", got)
	}
}

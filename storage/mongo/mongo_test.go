package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/apifest/authstore/storage"
)

// testStore connects to a local MongoDB instance. Tests are skipped
// when no instance is reachable. Each test gets its own database for
// isolation.
func testStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	store, err := New(context.Background(), Config{
		URI:      uri,
		Database: fmt.Sprintf("authstore_test_%s", t.Name()),
	})
	if err != nil {
		t.Skipf("Skipping test: could not connect to MongoDB at %s: %v", uri, err)
	}

	t.Cleanup(func() {
		_ = store.db.Drop(context.Background())
		_ = store.Close(context.Background())
	})
	return store
}

func TestStore_InsertAndFindOne(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := storage.Record{storage.IDField: "abc", "secret": "s3cret"}
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

func TestStore_Insert_ObjectIDNormalizedToHex(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, storage.CollectionAccessTokens, storage.Record{"token": "t1"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.FindOne(ctx, storage.CollectionAccessTokens, storage.Filter{"token": "t1"})
	if err != nil {
		t.Fatalf("FindOne() error = %v", err)
	}
	if _, ok := got[storage.IDField].(string); !ok {
		t.Errorf("_id = %T, want hex string", got[storage.IDField])
	}
}

func TestStore_FindOneAndSet_ReturnsPreviousDoc(t *testing.T) {
	store := testStore(t)
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

	_, err = store.FindOneAndSet(ctx, storage.CollectionAuthCodes,
		storage.Filter{"code": "c1", "valid": true},
		storage.Record{"valid": false})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second FindOneAndSet() error = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateOne_Upsert(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, description := range []string{"first", "second"} {
		err := store.UpdateOne(ctx, storage.CollectionScopes,
			storage.Filter{storage.IDField: "basic"},
			storage.Record{storage.IDField: "basic", "description": description}, true)
		if err != nil {
			t.Fatalf("UpdateOne() upsert error = %v", err)
		}
	}

	all, err := store.FindMany(ctx, storage.CollectionScopes, storage.Filter{})
	if err != nil {
		t.Fatalf("FindMany() error = %v", err)
	}
	if len(all) != 1 || all[0]["description"] != "second" {
		t.Errorf("FindMany() = %v, want single record with description %q", all, "second")
	}
}

package authstore

import (
	"context"
	"errors"
	"testing"

	"github.com/apifest/authstore/storage"
)

func TestStore_StoreScope_UpsertByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &Scope{Name: "basic", Description: "first", CCExpiresIn: 900, PassExpiresIn: 900}
	if err := store.StoreScope(ctx, first); err != nil {
		t.Fatalf("StoreScope() error = %v", err)
	}
	second := &Scope{Name: "basic", Description: "second", CCExpiresIn: 1800, PassExpiresIn: 900}
	if err := store.StoreScope(ctx, second); err != nil {
		t.Fatalf("second StoreScope() error = %v", err)
	}

	got, err := store.FindScope(ctx, "basic")
	if err != nil {
		t.Fatalf("FindScope() error = %v", err)
	}
	if got.Description != "second" || got.CCExpiresIn != 1800 {
		t.Errorf("FindScope() = %+v, want the latest upsert", got)
	}

	all, err := store.AllScopes(ctx)
	if err != nil {
		t.Fatalf("AllScopes() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("AllScopes() count = %d after repeated upserts of one name, want 1", len(all))
	}
}

func TestStore_FindScope_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindScope(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindScope(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_AllScopes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	names := []string{"basic", "extended", "admin"}
	for _, name := range names {
		if err := store.StoreScope(ctx, &Scope{Name: name, Description: name + " scope"}); err != nil {
			t.Fatalf("StoreScope(%q) error = %v", name, err)
		}
	}

	all, err := store.AllScopes(ctx)
	if err != nil {
		t.Fatalf("AllScopes() error = %v", err)
	}
	if len(all) != len(names) {
		t.Fatalf("AllScopes() count = %d, want %d", len(all), len(names))
	}

	seen := make(map[string]bool)
	for _, sc := range all {
		seen[sc.Name] = true
	}
	for _, name := range names {
		if !seen[name] {
			t.Errorf("AllScopes() missing scope %q", name)
		}
	}
}

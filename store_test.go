package authstore

import (
	"log/slog"
	"testing"

	"github.com/apifest/authstore/storage/memory"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return New(memory.New(), slog.Default(), opts...)
}

func TestNew_NilLogger(t *testing.T) {
	store := New(memory.New(), nil)
	if store.logger == nil {
		t.Fatal("New() with nil logger should fall back to slog.Default()")
	}
}

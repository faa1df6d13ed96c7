package security

import (
	"log/slog"
	"testing"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 3, slog.Default())
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("client-1") {
			t.Fatalf("Allow() attempt %d = false, want true within burst", i+1)
		}
	}
	if rl.Allow("client-1") {
		t.Error("Allow() = true after burst exhausted")
	}
}

func TestRateLimiter_IndependentIdentifiers(t *testing.T) {
	rl := NewRateLimiter(1, 1, slog.Default())
	defer rl.Stop()

	if !rl.Allow("client-a") {
		t.Fatal("first attempt for client-a should pass")
	}
	if rl.Allow("client-a") {
		t.Error("second attempt for client-a should be limited")
	}
	if !rl.Allow("client-b") {
		t.Error("client-b should have its own budget")
	}
}

func TestRateLimiter_EvictsStalestAtCapacity(t *testing.T) {
	rl := NewRateLimiter(1, 1, slog.Default())
	rl.maxEntries = 2
	defer rl.Stop()

	rl.Allow("first")
	rl.Allow("second")
	rl.Allow("third") // evicts "first"

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.entries) != 2 {
		t.Errorf("tracked entries = %d, want 2", len(rl.entries))
	}
	if _, ok := rl.entries["first"]; ok {
		t.Error("stalest entry should have been evicted")
	}
}

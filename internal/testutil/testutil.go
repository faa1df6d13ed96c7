// Package testutil provides testing utilities and helpers for the authstore library.
package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/apifest/authstore/storage"
)

// MockTime provides a controllable time source for deterministic testing
type MockTime struct {
	now time.Time
}

// NewMockTime creates a new mock time provider
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time
func (m *MockTime) Now() time.Time {
	return m.now
}

// Advance moves the mock time forward by the given duration
func (m *MockTime) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value
func (m *MockTime) Set(t time.Time) {
	m.now = t
}

// GenerateRandomString generates a random base64-encoded string
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// TestClientRecord creates a stored client application record
func TestClientRecord(clientID string) storage.Record {
	return storage.Record{
		storage.IDField: clientID,
		"secret":        "test-secret",
		"name":          "Test App",
		"uri":           "https://example.com",
		"descr":         "Test application",
		"scope":         "basic",
		"status":        int64(1),
		"created":       time.Now().UnixMilli(),
	}
}

// TestAuthCodeRecord creates a stored authorization code record
func TestAuthCodeRecord(code, clientID, redirectURI string) storage.Record {
	return storage.Record{
		storage.IDField: GenerateRandomString(24),
		"code":          code,
		"clientId":      clientID,
		"redirectUri":   redirectURI,
		"scope":         "basic",
		"type":          "auth_code",
		"valid":         true,
		"created":       time.Now().UnixMilli(),
	}
}

// TestAccessTokenRecord creates a stored access token record
func TestAccessTokenRecord(token, refreshToken, clientID string) storage.Record {
	return storage.Record{
		"token":        token,
		"refreshToken": refreshToken,
		"clientId":     clientID,
		"scope":        "basic",
		"type":         "bearer",
		"expiresIn":    "3600",
		"valid":        true,
		"created":      time.Now().UnixMilli(),
	}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

// AssertEqual fails the test if got != want
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertTrue fails the test if condition is false
func AssertTrue(t *testing.T, condition bool, message string) {
	t.Helper()
	if !condition {
		t.Errorf("assertion failed: %s", message)
	}
}

// AssertTimeEqual asserts two times are equal within a tolerance
func AssertTimeEqual(t *testing.T, got, want time.Time, tolerance time.Duration) {
	t.Helper()
	diff := got.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		t.Errorf("time mismatch: got %v, want %v (tolerance: %v, diff: %v)", got, want, tolerance, diff)
	}
}

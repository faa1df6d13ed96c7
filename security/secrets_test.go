package security

import (
	"strings"
	"testing"
)

func TestGenerateClientID(t *testing.T) {
	id := GenerateClientID()
	if len(id) != 32 {
		t.Errorf("GenerateClientID() length = %d, want 32", len(id))
	}
	if strings.Contains(id, "-") {
		t.Errorf("GenerateClientID() = %q, should not contain dashes", id)
	}
	if id == GenerateClientID() {
		t.Error("GenerateClientID() returned the same id twice")
	}
}

func TestGenerateClientSecret_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := GenerateClientSecret()
		if s == "" {
			t.Fatal("GenerateClientSecret() returned empty string")
		}
		if seen[s] {
			t.Fatalf("GenerateClientSecret() returned duplicate %q", s)
		}
		seen[s] = true
	}
}

func TestSecretsEqual(t *testing.T) {
	tests := []struct {
		name      string
		stored    string
		presented string
		want      bool
	}{
		{"matching secrets", "secret123", "secret123", true},
		{"different secrets", "secret123", "secret124", false},
		{"different lengths", "secret", "secret123", false},
		{"both empty", "", "", true},
		{"one empty", "secret", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SecretsEqual(tt.stored, tt.presented); got != tt.want {
				t.Errorf("SecretsEqual(%q, %q) = %v, want %v", tt.stored, tt.presented, got, tt.want)
			}
		})
	}
}

func TestHashSecret_RoundTrip(t *testing.T) {
	hash, err := HashSecret("my-client-secret")
	if err != nil {
		t.Fatalf("HashSecret() error = %v", err)
	}
	if hash == "my-client-secret" {
		t.Error("HashSecret() returned the plaintext")
	}

	if !CheckHashedSecret(hash, "my-client-secret") {
		t.Error("CheckHashedSecret() = false for the correct secret")
	}
	if CheckHashedSecret(hash, "wrong-secret") {
		t.Error("CheckHashedSecret() = true for a wrong secret")
	}
}

func TestCheckHashedSecret_InvalidHash(t *testing.T) {
	if CheckHashedSecret("not-a-bcrypt-hash", "anything") {
		t.Error("CheckHashedSecret() = true for a malformed hash")
	}
}

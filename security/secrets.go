// Package security provides the credential-handling primitives of the
// authorization core: identifier and secret generation, constant-time
// and bcrypt secret verification, encryption at rest for non-indexed
// fields, expiry checks with clock-skew grace, and per-client rate
// limiting for secret validation.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// secretEntropyBytes is the entropy of generated client secrets.
	secretEntropyBytes = 32

	// credentialEntropyBytes is the entropy of generated codes and tokens.
	credentialEntropyBytes = 24
)

// GenerateClientID returns a new collision-resistant client identifier:
// a UUID with the dashes stripped, matching the 32-hex-character ids
// issued at client registration.
func GenerateClientID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateClientSecret returns a new random client secret.
func GenerateClientSecret() string {
	return randomString(secretEntropyBytes)
}

// GenerateAuthCode returns a new random authorization code.
func GenerateAuthCode() string {
	return randomString(credentialEntropyBytes)
}

// GenerateToken returns a new random opaque token.
func GenerateToken() string {
	return randomString(credentialEntropyBytes)
}

// SecretsEqual compares two opaque secrets in constant time, so a
// failed comparison leaks no prefix-length timing information.
func SecretsEqual(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// HashSecret hashes a client secret with bcrypt for storage. Used by
// deployments that opt into hashed secrets instead of opaque ones.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// CheckHashedSecret reports whether presented matches the bcrypt hash.
// bcrypt's comparison is constant-time by design.
func CheckHashedSecret(hash, presented string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil
}

func randomString(entropyBytes int) string {
	b := make([]byte, entropyBytes)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform RNG is broken;
		// issuing predictable credentials is not an option.
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

package security

import "time"

// DefaultClockSkewGracePeriod is the grace period applied to expiry
// checks. It prevents false expirations caused by clock drift between
// the issuing process and the validating process; 5 seconds covers
// typical NTP drift.
const DefaultClockSkewGracePeriod = 5 * time.Second

// IsExpired checks whether a deadline has passed, with the default
// clock-skew grace period. A zero deadline never expires.
func IsExpired(validUntil time.Time) bool {
	return IsExpiredWithGracePeriod(validUntil, DefaultClockSkewGracePeriod)
}

// IsExpiredWithGracePeriod checks whether a deadline has passed with a
// custom grace period.
func IsExpiredWithGracePeriod(validUntil time.Time, gracePeriod time.Duration) bool {
	if validUntil.IsZero() {
		return false
	}
	return time.Now().After(validUntil.Add(gracePeriod))
}

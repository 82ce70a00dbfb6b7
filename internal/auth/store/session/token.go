package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// RefreshTokenTTL is how long a refresh token stays valid without rotation.
const RefreshTokenTTL = 30 * 24 * time.Hour

// NewRefreshToken returns an opaque 512-bit random token as a fixed-length
// hex string.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Expiry returns the refresh expiry for a session created at now.
func Expiry(now time.Time) time.Time {
	return now.Add(RefreshTokenTTL)
}

package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewRefreshToken generates a cryptographically random 64-character hex token.
func NewRefreshToken() (string, error) {
	return random(32, "refresh token")
}

// NewChallengeToken generates the opaque handle returned by login when a
// second factor is still required.
func NewChallengeToken() (string, error) {
	return random(32, "challenge token")
}

func random(n int, kind string) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate %s: %w", kind, err)
	}
	return hex.EncodeToString(b), nil
}

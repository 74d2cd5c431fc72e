package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// BackupCodeDigits is the fixed width of every backup code; fixed width keeps
// input validation trivial for clients.
const BackupCodeDigits = 8

// DefaultBackupCodeCount is how many codes a user receives per generation.
const DefaultBackupCodeCount = 10

var backupCodeMax = big.NewInt(100000000) // 10^BackupCodeDigits

// GenerateBackupCodes creates count independent 8-digit numeric codes, each
// drawn from a cryptographically secure source. Plaintext codes are shown to
// the user exactly once; only their hashes are ever stored.
func GenerateBackupCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidCodeCount
	}
	codes := make([]string, count)
	for i := range count {
		n, err := rand.Int(rand.Reader, backupCodeMax)
		if err != nil {
			return nil, errors.Join(ErrBackupGeneration, err)
		}
		codes[i] = fmt.Sprintf("%0*d", BackupCodeDigits, n.Int64())
	}
	return codes, nil
}

// HashBackupCode computes HMAC-SHA256 of the code keyed by the process-wide
// context value, hex-encoded for storage.
func HashBackupCode(code, context string) string {
	mac := hmac.New(sha256.New, []byte(context))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashBackupCodes hashes every code for storage, preserving order.
func HashBackupCodes(codes []string, context string) []string {
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = HashBackupCode(c, context)
	}
	return hashes
}

// MatchBackupCode hashes the candidate with the same context and looks it up
// in the stored set, comparing every entry in constant time without early
// exit. It returns the matched index or -1; removing the consumed hash is the
// caller's responsibility, keeping this package free of persistence effects.
func MatchBackupCode(candidate string, storedHashes []string, context string) int {
	computed := []byte(HashBackupCode(candidate, context))
	matched := -1
	for i, stored := range storedHashes {
		if subtle.ConstantTimeCompare(computed, []byte(stored)) == 1 && matched == -1 {
			matched = i
		}
	}
	return matched
}

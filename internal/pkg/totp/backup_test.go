package totp_test

import (
	"testing"

	"github.com/notes-api-nosql/internal/pkg/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hashContext = "test-context"

func TestGenerateBackupCodes_FormatAndCount(t *testing.T) {
	t.Parallel()
	codes, err := totp.GenerateBackupCodes(totp.DefaultBackupCodeCount)
	require.NoError(t, err)
	require.Len(t, codes, 10)
	for _, c := range codes {
		assert.Regexp(t, `^\d{8}$`, c)
	}
}

func TestGenerateBackupCodes_Distinct(t *testing.T) {
	t.Parallel()
	codes, err := totp.GenerateBackupCodes(10)
	require.NoError(t, err)

	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		_, dup := seen[c]
		assert.False(t, dup, "duplicate code %s", c)
		seen[c] = struct{}{}
	}
}

func TestGenerateBackupCodes_InvalidCount(t *testing.T) {
	t.Parallel()
	_, err := totp.GenerateBackupCodes(0)
	assert.ErrorIs(t, err, totp.ErrInvalidCodeCount)
	_, err = totp.GenerateBackupCodes(-5)
	assert.ErrorIs(t, err, totp.ErrInvalidCodeCount)
}

func TestHashBackupCode_DeterministicPerContext(t *testing.T) {
	t.Parallel()
	h1 := totp.HashBackupCode("12345678", hashContext)
	h2 := totp.HashBackupCode("12345678", hashContext)
	assert.Equal(t, h1, h2)

	// A different context key must produce a different hash.
	h3 := totp.HashBackupCode("12345678", "another-context")
	assert.NotEqual(t, h1, h3)

	// Hashes never contain the plaintext code.
	assert.NotContains(t, h1, "12345678")
}

func TestMatchBackupCode(t *testing.T) {
	t.Parallel()
	codes, err := totp.GenerateBackupCodes(10)
	require.NoError(t, err)
	hashes := totp.HashBackupCodes(codes, hashContext)
	require.Len(t, hashes, 10)

	idx := totp.MatchBackupCode(codes[3], hashes, hashContext)
	assert.Equal(t, 3, idx)

	assert.Equal(t, -1, totp.MatchBackupCode("00000000", hashes, hashContext))
	assert.Equal(t, -1, totp.MatchBackupCode(codes[3], hashes, "wrong-context"))
}

func TestMatchBackupCode_RemovedHashNoLongerMatches(t *testing.T) {
	t.Parallel()
	codes, err := totp.GenerateBackupCodes(3)
	require.NoError(t, err)
	hashes := totp.HashBackupCodes(codes, hashContext)

	idx := totp.MatchBackupCode(codes[1], hashes, hashContext)
	require.Equal(t, 1, idx)

	// Simulate the coordinator consuming the matched hash.
	remaining := append(hashes[:idx:idx], hashes[idx+1:]...)
	assert.Equal(t, -1, totp.MatchBackupCode(codes[1], remaining, hashContext))

	// Other codes are unaffected.
	assert.NotEqual(t, -1, totp.MatchBackupCode(codes[0], remaining, hashContext))
	assert.NotEqual(t, -1, totp.MatchBackupCode(codes[2], remaining, hashContext))
}

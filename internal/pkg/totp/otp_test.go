package totp_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/notes-api-nosql/internal/pkg/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecretKey(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Regexp(t, "^[A-Z2-7]+$", secret)

	other, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestProvisioningURI(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		issuer  string
		account string
		secret  string
		want    string
		wantErr error
	}{
		{
			name:    "basic",
			issuer:  "NotesAPI",
			account: "alice@example.com",
			secret:  "ABCDEFGHIJKLMNOP",
			want:    "otpauth://totp/NotesAPI:alice@example.com?algorithm=SHA1&digits=6&issuer=NotesAPI&period=30&secret=ABCDEFGHIJKLMNOP",
		},
		{
			name:    "issuer with spaces is escaped",
			issuer:  "Notes API",
			account: "alice@example.com",
			secret:  "ABCDEFGHIJKLMNOP",
			want:    "otpauth://totp/Notes%20API:alice@example.com?algorithm=SHA1&digits=6&issuer=Notes+API&period=30&secret=ABCDEFGHIJKLMNOP",
		},
		{
			name:    "missing issuer",
			account: "alice@example.com",
			secret:  "ABCDEFGHIJKLMNOP",
			wantErr: totp.ErrMissingIssuer,
		},
		{
			name:    "missing account",
			issuer:  "NotesAPI",
			secret:  "ABCDEFGHIJKLMNOP",
			wantErr: totp.ErrMissingAccount,
		},
		{
			name:    "invalid secret",
			issuer:  "NotesAPI",
			account: "alice@example.com",
			secret:  "not-base32!",
			wantErr: totp.ErrInvalidSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := totp.ProvisioningURI(tt.issuer, tt.account, tt.secret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyCode_ValidAtSameStep(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	now := time.Now()
	code, err := totp.GenerateCodeAt(secret, now)
	require.NoError(t, err)

	assert.True(t, totp.VerifyCode(secret, code, 0, now))
	assert.True(t, totp.VerifyCode(secret, code, 1, now))
}

func TestVerifyCode_WithinWindow(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	code, err := totp.GenerateCodeAt(secret, now)
	require.NoError(t, err)

	// One step later the previous code is still inside the default window.
	assert.True(t, totp.VerifyCode(secret, code, totp.DefaultWindow, now.Add(30*time.Second)))
	assert.True(t, totp.VerifyCode(secret, code, totp.DefaultWindow, now.Add(-30*time.Second)))
}

func TestVerifyCode_OutsideWindow(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	code, err := totp.GenerateCodeAt(secret, now)
	require.NoError(t, err)

	// (window+1) steps later the code must be rejected.
	assert.False(t, totp.VerifyCode(secret, code, 1, now.Add(2*30*time.Second)))
	assert.False(t, totp.VerifyCode(secret, code, 0, now.Add(30*time.Second)))
}

func TestVerifyCode_MalformedInputNeverErrors(t *testing.T) {
	t.Parallel()
	now := time.Now()

	assert.False(t, totp.VerifyCode("not-base32!", "123456", 1, now))
	assert.False(t, totp.VerifyCode("", "123456", 1, now))

	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.False(t, totp.VerifyCode(secret, "12345", 1, now))   // too short
	assert.False(t, totp.VerifyCode(secret, "abcdef", 1, now))  // not numeric
	assert.False(t, totp.VerifyCode(secret, "", 1, now))
}

func TestVerifyCode_NegativeWindowTreatedAsZero(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	code, err := totp.GenerateCodeAt(secret, now)
	require.NoError(t, err)

	assert.True(t, totp.VerifyCode(secret, code, -3, now))
	assert.False(t, totp.VerifyCode(secret, code, -3, now.Add(30*time.Second)))
}

func TestGenerateCodeAt_FixedWidth(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	for i := range 20 {
		code, err := totp.GenerateCodeAt(secret, time.Unix(int64(i)*30, 0))
		require.NoError(t, err)
		assert.Len(t, code, totp.Digits, fmt.Sprintf("step %d", i))
		assert.Regexp(t, `^\d{6}$`, code)
	}
}

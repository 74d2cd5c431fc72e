package totp

import "errors"

var (
	ErrSecretGeneration  = errors.New("failed to generate TOTP secret")
	ErrMissingSecret     = errors.New("missing secret")
	ErrInvalidSecret     = errors.New("invalid secret")
	ErrMissingIssuer     = errors.New("missing issuer")
	ErrMissingAccount    = errors.New("missing account name")
	ErrEncryptionFailed  = errors.New("failed to encrypt secret")
	ErrDecryptionFailed  = errors.New("failed to decrypt secret")
	ErrCipherTooShort    = errors.New("ciphertext too short")
	ErrInvalidKeyLength  = errors.New("encryption key must be 32 bytes")
	ErrKeyNotSet         = errors.New("encryption key not set")
	ErrContextNotSet     = errors.New("backup code context not set")
	ErrInvalidCodeCount  = errors.New("backup code count must be greater than 0")
	ErrBackupGeneration  = errors.New("failed to generate backup code")
)

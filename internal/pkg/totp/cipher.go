package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// KeySize is the required key size for AES-256 (256 bits / 8 = 32 bytes).
const KeySize = 32

// EncryptSecret encrypts a TOTP secret with AES-256-GCM under a fresh random
// nonce and returns base64(nonce || ciphertext). A new nonce per call means
// identical secrets never produce identical blobs, and GCM's tag gives tamper
// detection on the way back out.
func EncryptSecret(plainText string, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", errors.Join(ErrEncryptionFailed, ErrInvalidKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	cipherText := aesGCM.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(cipherText), nil
}

// DecryptSecret reverses EncryptSecret. Malformed, truncated or mis-keyed
// blobs fail with ErrDecryptionFailed; a silently wrong plaintext is not a
// possible outcome.
func DecryptSecret(blob string, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", errors.Join(ErrDecryptionFailed, ErrInvalidKeyLength)
	}

	cipherText, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(cipherText) < nonceSize {
		return "", errors.Join(ErrDecryptionFailed, ErrCipherTooShort)
	}
	nonce, cipherText := cipherText[:nonceSize], cipherText[nonceSize:]

	plainText, err := aesGCM.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return string(plainText), nil
}

// ParseEncryptionKey decodes the base64 key from configuration. The key is
// process-wide and loaded once at startup; there is no fallback default, so a
// missing or malformed key must abort the process rather than weaken storage.
func ParseEncryptionKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrKeyNotSet
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrInvalidKeyLength, err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	return key, nil
}

// GenerateEncodedEncryptionKey creates a random 32-byte key as base64, for
// provisioning MFA_ENCRYPTION_KEY in new environments.
func GenerateEncodedEncryptionKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

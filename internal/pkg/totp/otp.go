// Package totp implements the cryptographic core of the MFA subsystem:
// RFC 6238 time-based one-time passwords, otpauth provisioning URIs,
// AES-256-GCM encryption of the shared secret for storage at rest, and
// single-use backup codes hashed with a keyed HMAC.
//
// The secret itself must never be logged or persisted in plaintext; only the
// coordinating service sees it decrypted.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	Digits = 6  // standard 6-digit codes
	Period = 30 // 30-second step (RFC 6238 standard)

	// DefaultWindow tolerates one step of clock drift in either direction.
	DefaultWindow = 1

	secretBytes = 20 // 160-bit secret (RFC 4226 recommendation)
)

// secretKeyRegex ensures Base32 format: uppercase A-Z, digits 2-7, no padding.
var secretKeyRegex = regexp.MustCompile("^[A-Z2-7]+$")

var codeRegex = regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, Digits))

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecretKey generates a fresh 160-bit secret from a cryptographically
// secure source, Base32-encoded without padding for manual entry and QR
// transport. Entropy failure is an error, never a degraded secret.
func GenerateSecretKey() (string, error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrSecretGeneration, err)
	}
	return b32.EncodeToString(secret), nil
}

// ProvisioningURI builds the otpauth:// URI consumed by authenticator apps.
// Issuer and account are percent-encoded; the URI is handed to the QR
// renderer, which treats it as an opaque string.
// Format: https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func ProvisioningURI(issuer, account, secret string) (string, error) {
	if issuer == "" {
		return "", ErrMissingIssuer
	}
	if account == "" {
		return "", ErrMissingAccount
	}
	if secret == "" {
		return "", ErrMissingSecret
	}
	if !secretKeyRegex.MatchString(secret) {
		return "", ErrInvalidSecret
	}

	label := fmt.Sprintf("%s:%s", url.PathEscape(issuer), url.PathEscape(account))

	query := url.Values{}
	query.Set("secret", secret)
	query.Set("issuer", issuer)
	query.Set("algorithm", "SHA1")
	query.Set("digits", fmt.Sprintf("%d", Digits))
	query.Set("period", fmt.Sprintf("%d", Period))

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode()), nil
}

// VerifyCode checks candidate against the codes for every step offset in
// [-window, +window] around now. It returns false for malformed secrets or
// candidates rather than an error, so callers cannot distinguish a corrupt
// secret from a wrong code. All offsets are always evaluated and compared in
// constant time; there is no early exit that would leak the matching offset.
func VerifyCode(secret, candidate string, window int, now time.Time) bool {
	key, ok := decodeSecret(secret)
	if !ok {
		return false
	}
	candidate = strings.TrimSpace(candidate)
	if !codeRegex.MatchString(candidate) {
		return false
	}
	if window < 0 {
		window = 0
	}

	counter := now.Unix() / int64(Period)
	match := 0
	for i := -window; i <= window; i++ {
		code := fmt.Sprintf("%0*d", Digits, hotp(key, counter+int64(i)))
		match |= subtle.ConstantTimeCompare([]byte(code), []byte(candidate))
	}
	return match == 1
}

// GenerateCodeAt returns the code for the step containing t.
func GenerateCodeAt(secret string, t time.Time) (string, error) {
	key, ok := decodeSecret(secret)
	if !ok {
		return "", ErrInvalidSecret
	}
	return fmt.Sprintf("%0*d", Digits, hotp(key, t.Unix()/int64(Period))), nil
}

func decodeSecret(secret string) ([]byte, bool) {
	secret = strings.TrimSpace(strings.ToUpper(secret))
	if !secretKeyRegex.MatchString(secret) {
		return nil, false
	}
	key, err := b32.DecodeString(secret)
	if err != nil {
		return nil, false
	}
	return key, true
}

// hotp implements the RFC 4226 HMAC-based one-time password algorithm,
// truncating an HMAC-SHA1 of the big-endian counter to Digits decimal digits.
func hotp(key []byte, counter int64) int {
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(counter & 0xff)
		counter >>= 8
	}

	mac := hmac.New(sha1.New, key)
	mac.Write(buf)
	sum := mac.Sum(nil)

	// Dynamic truncation (RFC 4226): last 4 bits pick the offset, MSB cleared
	// to keep the value positive.
	offset := sum[len(sum)-1] & 0x0f
	code := (int(sum[offset]&0x7f) << 24) |
		(int(sum[offset+1]) << 16) |
		(int(sum[offset+2]) << 8) |
		int(sum[offset+3])

	return code % int(math.Pow10(Digits))
}

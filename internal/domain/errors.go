package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// MFA state-machine and verification errors. The wire representation of
// ErrInvalidCode is identical whatever failed internally (wrong TOTP, wrong
// backup code, corrupt secret blob) so callers cannot probe MFA configuration
// through error differentiation.
var (
	ErrInvalidCode            = errors.New("invalid verification code")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrMFANotEnabled          = errors.New("mfa not enabled")
	ErrMFAAlreadyEnabled      = errors.New("mfa already enabled")
	ErrMFASetupNotStarted     = errors.New("mfa setup not started")
	ErrConcurrentModification = errors.New("concurrent modification, retry")
)

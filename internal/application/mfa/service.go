// Package mfa coordinates the TOTP second-factor lifecycle: secret
// provisioning, activation, login verification, backup codes, and teardown.
// All state lives in a single per-user credential row; transitions are
// guarded by the row's version so concurrent requests cannot both commit.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/notes-api-nosql/internal/domain"
	"github.com/notes-api-nosql/internal/infrastructure/qrcode"
	"github.com/notes-api-nosql/internal/pkg/totp"
)

// SetupResult is returned by StartSetup. Secret is the base32 key for manual
// entry, ProvisioningURI the same key wrapped in an otpauth:// URI for
// authenticator apps, and BackupCodes the plaintext recovery codes. This is
// the only time the codes are ever visible; only their hashes are stored.
type SetupResult struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	BackupCodes     []string `json:"backup_codes"`
}

// Status is the non-sensitive view of a user's MFA configuration.
type Status struct {
	Enabled              bool       `json:"enabled"`
	PendingSetup         bool       `json:"pending_setup"`
	SetupDate            *time.Time `json:"setup_date,omitempty"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
}

type Service interface {
	StartSetup(ctx context.Context, userID string) (*SetupResult, error)
	SetupQR(ctx context.Context, userID string, size int) ([]byte, error)
	Enable(ctx context.Context, userID, code string) error
	VerifyLogin(ctx context.Context, userID, code string, isBackupCode bool) error
	Disable(ctx context.Context, userID, password, code string, isBackupCode bool) error
	GetStatus(ctx context.Context, userID string) (*Status, error)
	RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error)
}

type credentialStore interface {
	Get(ctx context.Context, userID string) (*domain.MFACredential, error)
	Save(ctx context.Context, cred *domain.MFACredential) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	creds     credentialStore
	users     userStore
	mailer    mailer
	sms       smsSender
	key       []byte
	backupCtx string
	issuer    string
}

type ServiceDeps struct {
	CredentialRepo    credentialStore
	UserRepo          userStore
	Mailer            mailer
	SMSSender         smsSender
	EncryptionKey     []byte
	BackupCodeContext string
	Issuer            string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		creds:     deps.CredentialRepo,
		users:     deps.UserRepo,
		mailer:    deps.Mailer,
		sms:       deps.SMSSender,
		key:       deps.EncryptionKey,
		backupCtx: deps.BackupCodeContext,
		issuer:    deps.Issuer,
	}
}

// StartSetup generates a fresh TOTP secret plus a full set of backup codes
// and stores them (secret encrypted, codes hashed) pending activation.
// Restarting while a previous setup is still pending replaces everything; an
// already active credential is never replaced silently.
func (s *service) StartSetup(ctx context.Context, userID string) (*SetupResult, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cred, err := s.loadCredential(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred.State() == domain.MFAStateEnabled {
		return nil, fmt.Errorf("disable current mfa before re-enrolling: %w", domain.ErrMFAAlreadyEnabled)
	}

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return nil, err
	}
	uri, err := totp.ProvisioningURI(s.issuer, u.Email, secret)
	if err != nil {
		return nil, err
	}
	encrypted, err := totp.EncryptSecret(secret, s.key)
	if err != nil {
		return nil, err
	}
	codes, err := totp.GenerateBackupCodes(totp.DefaultBackupCodeCount)
	if err != nil {
		return nil, err
	}

	cred.EncryptedSecret = encrypted
	cred.BackupCodeHashes = totp.HashBackupCodes(codes, s.backupCtx)
	cred.Enabled = false
	cred.SetupDate = nil
	if err := s.creds.Save(ctx, cred); err != nil {
		return nil, err
	}
	return &SetupResult{Secret: secret, ProvisioningURI: uri, BackupCodes: codes}, nil
}

// SetupQR renders the pending provisioning URI as a PNG so clients can show
// a scannable code without re-sending the secret through another channel.
func (s *service) SetupQR(ctx context.Context, userID string, size int) ([]byte, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cred, err := s.loadCredential(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch cred.State() {
	case domain.MFAStatePendingSetup:
	case domain.MFAStateEnabled:
		return nil, fmt.Errorf("mfa is already active: %w", domain.ErrMFAAlreadyEnabled)
	default:
		return nil, fmt.Errorf("call setup first: %w", domain.ErrMFASetupNotStarted)
	}

	secret, err := totp.DecryptSecret(cred.EncryptedSecret, s.key)
	if err != nil {
		return nil, err
	}
	uri, err := totp.ProvisioningURI(s.issuer, u.Email, secret)
	if err != nil {
		return nil, err
	}
	return qrcode.GeneratePNG(uri, size)
}

// Enable activates a pending credential once the user proves possession of
// the secret with a valid TOTP code.
func (s *service) Enable(ctx context.Context, userID, code string) error {
	cred, err := s.loadCredential(ctx, userID)
	if err != nil {
		return err
	}
	switch cred.State() {
	case domain.MFAStatePendingSetup:
	case domain.MFAStateEnabled:
		return fmt.Errorf("mfa is already active: %w", domain.ErrMFAAlreadyEnabled)
	default:
		return fmt.Errorf("call setup first: %w", domain.ErrMFASetupNotStarted)
	}

	secret, err := totp.DecryptSecret(cred.EncryptedSecret, s.key)
	if err != nil {
		slog.Warn("mfa secret decryption failed", "user_id", userID, "error", err)
		return fmt.Errorf("code verification failed: %w", domain.ErrInvalidCode)
	}
	if !totp.VerifyCode(secret, code, totp.DefaultWindow, time.Now().UTC()) {
		return fmt.Errorf("code verification failed: %w", domain.ErrInvalidCode)
	}

	now := time.Now().UTC()
	cred.Enabled = true
	cred.SetupDate = &now
	if err := s.creds.Save(ctx, cred); err != nil {
		return err
	}

	s.notify(ctx, userID, "Two-factor authentication enabled",
		"Two-factor authentication was just enabled on your account. If this was not you, contact support immediately.")
	return nil
}

// VerifyLogin checks a login-time second factor. With isBackupCode set the
// code is matched against the unused backup codes and the match is consumed
// before reporting success; if another request consumed it first the
// conditional save fails and ErrConcurrentModification is returned so the
// client can retry. Otherwise the code is verified as a TOTP value.
func (s *service) VerifyLogin(ctx context.Context, userID, code string, isBackupCode bool) error {
	cred, err := s.loadCredential(ctx, userID)
	if err != nil {
		return err
	}
	if cred.State() != domain.MFAStateEnabled {
		return fmt.Errorf("no active second factor: %w", domain.ErrMFANotEnabled)
	}

	if !isBackupCode {
		if !s.verifyTOTP(userID, cred, code) {
			return fmt.Errorf("code verification failed: %w", domain.ErrInvalidCode)
		}
		return nil
	}

	idx := totp.MatchBackupCode(code, cred.BackupCodeHashes, s.backupCtx)
	if idx < 0 {
		return fmt.Errorf("code verification failed: %w", domain.ErrInvalidCode)
	}
	cred.BackupCodeHashes = removeHash(cred.BackupCodeHashes, idx)
	if err := s.creds.Save(ctx, cred); err != nil {
		return err
	}
	s.notify(ctx, userID, "Backup code used",
		fmt.Sprintf("A backup code was used to sign in to your account. %d backup codes remain.", len(cred.BackupCodeHashes)))
	return nil
}

// Disable turns MFA off after re-proving the account password and a second
// factor, then wipes all secret material in one write, returning the user to
// a clean unset state. Nothing is cleared when either check fails.
func (s *service) Disable(ctx context.Context, userID, password, code string, isBackupCode bool) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return fmt.Errorf("password verification failed: %w", domain.ErrInvalidCredentials)
	}

	cred, err := s.loadCredential(ctx, userID)
	if err != nil {
		return err
	}
	if cred.State() != domain.MFAStateEnabled {
		return fmt.Errorf("no active second factor: %w", domain.ErrMFANotEnabled)
	}
	if !s.checkSecondFactor(userID, cred, code, isBackupCode) {
		return fmt.Errorf("code verification failed: %w", domain.ErrInvalidCode)
	}

	cred.Clear()
	if err := s.creds.Save(ctx, cred); err != nil {
		return err
	}
	s.notify(ctx, userID, "Two-factor authentication disabled",
		"Two-factor authentication was just disabled on your account. If this was not you, contact support immediately.")
	return nil
}

func (s *service) GetStatus(ctx context.Context, userID string) (*Status, error) {
	cred, err := s.loadCredential(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := &Status{}
	switch cred.State() {
	case domain.MFAStateEnabled:
		st.Enabled = true
		st.SetupDate = cred.SetupDate
		st.BackupCodesRemaining = len(cred.BackupCodeHashes)
	case domain.MFAStatePendingSetup:
		st.PendingSetup = true
	}
	return st, nil
}

// RegenerateBackupCodes invalidates every remaining backup code and issues a
// fresh set. TOTP codes keep working throughout.
func (s *service) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	cred, err := s.loadCredential(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred.State() != domain.MFAStateEnabled {
		return nil, fmt.Errorf("no active second factor: %w", domain.ErrMFANotEnabled)
	}

	codes, err := totp.GenerateBackupCodes(totp.DefaultBackupCodeCount)
	if err != nil {
		return nil, err
	}
	cred.BackupCodeHashes = totp.HashBackupCodes(codes, s.backupCtx)
	if err := s.creds.Save(ctx, cred); err != nil {
		return nil, err
	}
	s.notify(ctx, userID, "Backup codes regenerated",
		"Your backup codes were regenerated. Previous codes no longer work.")
	return codes, nil
}

// loadCredential returns the stored credential, or a zero-version empty one
// when the user never started setup.
func (s *service) loadCredential(ctx context.Context, userID string) (*domain.MFACredential, error) {
	cred, err := s.creds.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.MFACredential{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// verifyTOTP decrypts the stored secret and checks candidate against it. A
// secret that no longer decrypts is logged and treated as a failed check;
// the caller sees the same ErrInvalidCode either way.
func (s *service) verifyTOTP(userID string, cred *domain.MFACredential, candidate string) bool {
	secret, err := totp.DecryptSecret(cred.EncryptedSecret, s.key)
	if err != nil {
		slog.Warn("mfa secret decryption failed", "user_id", userID, "error", err)
		return false
	}
	return totp.VerifyCode(secret, candidate, totp.DefaultWindow, time.Now().UTC())
}

// checkSecondFactor routes candidate to the TOTP or backup-code check without
// consuming anything.
func (s *service) checkSecondFactor(userID string, cred *domain.MFACredential, candidate string, isBackupCode bool) bool {
	if isBackupCode {
		return totp.MatchBackupCode(candidate, cred.BackupCodeHashes, s.backupCtx) >= 0
	}
	return s.verifyTOTP(userID, cred, candidate)
}

// notify sends a security alert by email, and by SMS when the user has a
// phone number on file. Delivery failures are logged, never surfaced; the
// state change already committed.
func (s *service) notify(ctx context.Context, userID, subject, body string) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		slog.Warn("mfa notification skipped, user lookup failed", "user_id", userID, "error", err)
		return
	}
	if s.mailer != nil {
		if err := s.mailer.SendEmail(u.Email, subject, body); err != nil {
			slog.Warn("mfa notification email failed", "user_id", userID, "error", err)
		}
	}
	if s.sms != nil && u.Phone != nil && *u.Phone != "" {
		if err := s.sms.SendSMS(ctx, *u.Phone, subject); err != nil {
			slog.Warn("mfa notification sms failed", "user_id", userID, "error", err)
		}
	}
}

func removeHash(hashes []string, idx int) []string {
	out := make([]string, 0, len(hashes)-1)
	out = append(out, hashes[:idx]...)
	return append(out, hashes[idx+1:]...)
}

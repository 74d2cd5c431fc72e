package domain

import "time"

// MFAState is the derived lifecycle state of a user's MFA credential.
type MFAState int

const (
	MFAStateUnset MFAState = iota
	MFAStatePendingSetup
	MFAStateEnabled
)

// MFACredential is the single per-user MFA record: the encrypted TOTP secret,
// the unused backup-code hashes, and the enabled flag. Version is the
// optimistic-concurrency token; every save is conditional on it so two
// requests can never both consume the same backup code.
type MFACredential struct {
	UserID           string     `json:"-" dynamodbav:"user_id"`
	EncryptedSecret  string     `json:"-" dynamodbav:"encrypted_secret"`
	BackupCodeHashes []string   `json:"-" dynamodbav:"backup_code_hashes"`
	Enabled          bool       `json:"enabled" dynamodbav:"enabled"`
	SetupDate        *time.Time `json:"setup_date,omitempty" dynamodbav:"setup_date"`
	Version          int64      `json:"-" dynamodbav:"version"`
	UpdatedAt        time.Time  `json:"-" dynamodbav:"updated_at"`
}

// State derives the lifecycle state. A disabled credential whose secret was
// cleared is indistinguishable from one that never existed.
func (c *MFACredential) State() MFAState {
	switch {
	case c == nil || c.EncryptedSecret == "":
		return MFAStateUnset
	case c.Enabled:
		return MFAStateEnabled
	default:
		return MFAStatePendingSetup
	}
}

// Clear wipes all secret material. Used on disable; the invariant is that no
// residual secret, hashes or setup date survive.
func (c *MFACredential) Clear() {
	c.EncryptedSecret = ""
	c.BackupCodeHashes = nil
	c.Enabled = false
	c.SetupDate = nil
}

// MFAChallenge is the short-lived handle issued at login time when the
// password was accepted but a second factor is still required.
// PK: token. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type MFAChallenge struct {
	Token     string `json:"-" dynamodbav:"token"`
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

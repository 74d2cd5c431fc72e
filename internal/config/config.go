package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	RefreshTokenTTL   time.Duration

	// MFAEncryptionKey is the base64-encoded 32-byte AES key protecting TOTP
	// secrets at rest. MFABackupCodeContext keys the backup-code HMAC. Neither
	// has a default: main exits when they are missing or malformed.
	MFAEncryptionKey     string
	MFABackupCodeContext string
	MFAIssuer            string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users          string
	Sessions       string
	Notes          string
	Categories     string
	Files          string
	MFACredentials string
	MFAChallenges  string
}

// Load reads all configuration from environment variables.
// MFA key material is deliberately left unvalidated here; cmd/api/main
// parses it at startup and refuses to boot on failure.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:          getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:       getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Notes:          getEnv("DYNAMO_TABLE_NOTES", "notes"),
			Categories:     getEnv("DYNAMO_TABLE_CATEGORIES", "categories"),
			Files:          getEnv("DYNAMO_TABLE_FILES", "files"),
			MFACredentials: getEnv("DYNAMO_TABLE_MFA_CREDENTIALS", "mfa_credentials"),
			MFAChallenges:  getEnv("DYNAMO_TABLE_MFA_CHALLENGES", "mfa_challenges"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "notes-api-files"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		RefreshTokenTTL:   time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		MFAEncryptionKey:     os.Getenv("MFA_ENCRYPTION_KEY"),
		MFABackupCodeContext: os.Getenv("MFA_BACKUP_CODE_CONTEXT"),
		MFAIssuer:            getEnv("MFA_ISSUER", "NotesAPI"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

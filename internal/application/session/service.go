package session

import (
	"context"
	"fmt"
	"time"

	"github.com/notes-api-nosql/internal/application/mfa"
	"github.com/notes-api-nosql/internal/domain"
	"github.com/notes-api-nosql/internal/pkg/id"
	pkgtoken "github.com/notes-api-nosql/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// challengeTTL bounds how long a password-accepted login may wait for its
// second factor before the handle expires.
const challengeTTL = 5 * time.Minute

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// MFALoginRequest exchanges the opaque token from the first login step plus
// a verification code for a real session.
type MFALoginRequest struct {
	MFAToken     string `json:"mfa_token" validate:"required"`
	Code         string `json:"code" validate:"required"`
	IsBackupCode bool   `json:"is_backup_code"`
}

// LoginResult is either a completed session (Bearer set) or an MFA challenge
// (MFARequired set); never both.
type LoginResult struct {
	MFARequired  bool
	MFAToken     string
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	CompleteMFA(ctx context.Context, req MFALoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
}

type challengeStore interface {
	Put(ctx context.Context, c *domain.MFAChallenge) error
	Get(ctx context.Context, token string) (*domain.MFAChallenge, error)
	Delete(ctx context.Context, token string) error
}

// mfaGate is the slice of the MFA coordinator the login flow needs.
type mfaGate interface {
	GetStatus(ctx context.Context, userID string) (*mfa.Status, error)
	VerifyLogin(ctx context.Context, userID, code string, isBackupCode bool) error
}

type jwtSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

type service struct {
	users           userStore
	sessions        sessionStore
	challenges      challengeStore
	mfa             mfaGate
	jwtProvider     jwtSigner
	refreshTokenTTL time.Duration
}

type ServiceDeps struct {
	UserRepo        userStore
	SessionRepo     sessionStore
	ChallengeRepo   challengeStore
	MFA             mfaGate
	JWTProvider     jwtSigner
	RefreshTokenTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:           deps.UserRepo,
		sessions:        deps.SessionRepo,
		challenges:      deps.ChallengeRepo,
		mfa:             deps.MFA,
		jwtProvider:     deps.JWTProvider,
		refreshTokenTTL: deps.RefreshTokenTTL,
	}
}

// Login verifies the password and, when the account has MFA enabled, stops
// short of a session: it returns an opaque challenge token the client must
// exchange via CompleteMFA. The challenge row expires on its own, so an
// abandoned half-login leaves nothing to clean up.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		u, err = s.users.GetByEmail(ctx, req.Username)
		if err != nil {
			return nil, fmt.Errorf("login failed: %w", domain.ErrInvalidCredentials)
		}
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("login failed: %w", domain.ErrInvalidCredentials)
	}

	st, err := s.mfa.GetStatus(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	if st.Enabled {
		token, err := pkgtoken.NewChallengeToken()
		if err != nil {
			return nil, err
		}
		ch := &domain.MFAChallenge{
			Token:     token,
			UserID:    u.UserID,
			ExpiresAt: time.Now().Add(challengeTTL).Unix(),
		}
		if err := s.challenges.Put(ctx, ch); err != nil {
			return nil, err
		}
		return &LoginResult{MFARequired: true, MFAToken: token}, nil
	}

	return s.issueSession(ctx, u)
}

// CompleteMFA finishes a two-step login. The challenge token is single-use:
// it is deleted once the code verifies, before the session is issued.
func (s *service) CompleteMFA(ctx context.Context, req MFALoginRequest) (*LoginResult, error) {
	ch, err := s.challenges.Get(ctx, req.MFAToken)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired mfa token: %w", domain.ErrInvalidCredentials)
	}
	if ch.ExpiresAt < time.Now().Unix() {
		_ = s.challenges.Delete(ctx, ch.Token)
		return nil, fmt.Errorf("invalid or expired mfa token: %w", domain.ErrInvalidCredentials)
	}

	if err := s.mfa.VerifyLogin(ctx, ch.UserID, req.Code, req.IsBackupCode); err != nil {
		return nil, err
	}
	if err := s.challenges.Delete(ctx, ch.Token); err != nil {
		return nil, err
	}

	u, err := s.users.Get(ctx, ch.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	return s.issueSession(ctx, u)
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return "", "", fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	newExpiry := time.Now().Add(s.refreshTokenTTL).Unix()
	if err := s.sessions.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return "", "", err
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return "", "", err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return "", "", err
	}
	return bearer, newToken, nil
}

func (s *service) issueSession(ctx context.Context, u *domain.User) (*LoginResult, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenTTL).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

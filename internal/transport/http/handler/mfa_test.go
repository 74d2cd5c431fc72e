package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/notes-api-nosql/internal/application/mfa"
	"github.com/notes-api-nosql/internal/domain"
	jwtinfra "github.com/notes-api-nosql/internal/infrastructure/jwt"
	"github.com/notes-api-nosql/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockMFASvc struct{ mock.Mock }

func (m *mockMFASvc) StartSetup(ctx context.Context, userID string) (*mfa.SetupResult, error) {
	args := m.Called(ctx, userID)
	if r, _ := args.Get(0).(*mfa.SetupResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMFASvc) SetupQR(ctx context.Context, userID string, size int) ([]byte, error) {
	args := m.Called(ctx, userID, size)
	if b, _ := args.Get(0).([]byte); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMFASvc) Enable(ctx context.Context, userID, code string) error {
	return m.Called(ctx, userID, code).Error(0)
}
func (m *mockMFASvc) VerifyLogin(ctx context.Context, userID, code string, isBackupCode bool) error {
	return m.Called(ctx, userID, code, isBackupCode).Error(0)
}
func (m *mockMFASvc) Disable(ctx context.Context, userID, password, code string, isBackupCode bool) error {
	return m.Called(ctx, userID, password, code, isBackupCode).Error(0)
}
func (m *mockMFASvc) GetStatus(ctx context.Context, userID string) (*mfa.Status, error) {
	args := m.Called(ctx, userID)
	if st, _ := args.Get(0).(*mfa.Status); st != nil {
		return st, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMFASvc) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if c, _ := args.Get(0).([]string); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	claims := &jwtinfra.Claims{UserID: "u1", Role: domain.RoleUser, SessionID: "s1"}
	ctx := context.WithValue(req.Context(), middleware.ClaimsKey, claims)
	return req.WithContext(ctx)
}

// --- Setup ---

func TestMFASetup_NoClaims(t *testing.T) {
	h := NewMFAHandler(&mockMFASvc{})
	rr := httptest.NewRecorder()
	h.Setup(rr, httptest.NewRequest(http.MethodPost, "/v1/mfa/setup", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMFASetup_ReturnsSecretURIAndBackupCodes(t *testing.T) {
	svc := &mockMFASvc{}
	svc.On("StartSetup", mock.Anything, "u1").Return(&mfa.SetupResult{
		Secret:          "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP",
		ProvisioningURI: "otpauth://totp/NotesAPI:alice@example.com?secret=...",
		BackupCodes:     []string{"11112222", "33334444"},
	}, nil)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.Setup(rr, authedRequest(http.MethodPost, "/v1/mfa/setup", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var res mfa.SetupResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP", res.Secret)
	assert.Contains(t, res.ProvisioningURI, "otpauth://totp/")
	assert.Equal(t, []string{"11112222", "33334444"}, res.BackupCodes)
}

func TestMFASetup_AlreadyEnabled(t *testing.T) {
	svc := &mockMFASvc{}
	svc.On("StartSetup", mock.Anything, "u1").Return(nil, domain.ErrMFAAlreadyEnabled)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.Setup(rr, authedRequest(http.MethodPost, "/v1/mfa/setup", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

// --- SetupQR ---

func TestMFASetupQR_ServesPNG(t *testing.T) {
	svc := &mockMFASvc{}
	png := []byte{0x89, 'P', 'N', 'G'}
	svc.On("SetupQR", mock.Anything, "u1", 256).Return(png, nil)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.SetupQR(rr, authedRequest(http.MethodGet, "/v1/mfa/setup/qr?size=256", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, png, rr.Body.Bytes())
}

func TestMFASetupQR_SetupNotStarted(t *testing.T) {
	svc := &mockMFASvc{}
	svc.On("SetupQR", mock.Anything, "u1", 0).Return(nil, domain.ErrMFASetupNotStarted)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.SetupQR(rr, authedRequest(http.MethodGet, "/v1/mfa/setup/qr", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- Enable ---

func TestMFAEnable_MissingCode(t *testing.T) {
	h := NewMFAHandler(&mockMFASvc{})
	rr := httptest.NewRecorder()
	h.Enable(rr, authedRequest(http.MethodPost, "/v1/mfa/enable", []byte(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMFAEnable_WrongCode(t *testing.T) {
	svc := &mockMFASvc{}
	svc.On("Enable", mock.Anything, "u1", "000000").Return(domain.ErrInvalidCode)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.Enable(rr, authedRequest(http.MethodPost, "/v1/mfa/enable", []byte(`{"code":"000000"}`)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMFAEnable_HappyPath(t *testing.T) {
	svc := &mockMFASvc{}
	svc.On("Enable", mock.Anything, "u1", "123456").Return(nil)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.Enable(rr, authedRequest(http.MethodPost, "/v1/mfa/enable", []byte(`{"code":"123456"}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	var res struct {
		Enabled bool `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.Enabled)
}

// --- Status ---

func TestMFAStatus_Enabled(t *testing.T) {
	svc := &mockMFASvc{}
	setup := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.On("GetStatus", mock.Anything, "u1").Return(&mfa.Status{
		Enabled:              true,
		SetupDate:            &setup,
		BackupCodesRemaining: 7,
	}, nil)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.Status(rr, authedRequest(http.MethodGet, "/v1/mfa", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var st mfa.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.True(t, st.Enabled)
	assert.Equal(t, 7, st.BackupCodesRemaining)
}

// --- Disable ---

func TestMFADisable_MissingPassword(t *testing.T) {
	h := NewMFAHandler(&mockMFASvc{})
	rr := httptest.NewRecorder()
	h.Disable(rr, authedRequest(http.MethodPost, "/v1/mfa/disable", []byte(`{"code":"123456"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMFADisable_WrongPassword(t *testing.T) {
	svc := &mockMFASvc{}
	svc.On("Disable", mock.Anything, "u1", "badpass", "123456", false).Return(domain.ErrInvalidCredentials)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.Disable(rr, authedRequest(http.MethodPost, "/v1/mfa/disable",
		[]byte(`{"current_password":"badpass","code":"123456"}`)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMFADisable_NotEnabled(t *testing.T) {
	svc := &mockMFASvc{}
	svc.On("Disable", mock.Anything, "u1", "hunter2!", "123456", false).Return(domain.ErrMFANotEnabled)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.Disable(rr, authedRequest(http.MethodPost, "/v1/mfa/disable",
		[]byte(`{"current_password":"hunter2!","code":"123456"}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMFADisable_HappyPath(t *testing.T) {
	svc := &mockMFASvc{}
	svc.On("Disable", mock.Anything, "u1", "hunter2!", "11112222", true).Return(nil)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.Disable(rr, authedRequest(http.MethodPost, "/v1/mfa/disable",
		[]byte(`{"current_password":"hunter2!","code":"11112222","is_backup_code":true}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	var res struct {
		Enabled bool `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.False(t, res.Enabled)
}

// --- RegenerateBackupCodes ---

func TestMFARegenerate_ReturnsFreshCodes(t *testing.T) {
	svc := &mockMFASvc{}
	codes := []string{"11112222", "33334444"}
	svc.On("RegenerateBackupCodes", mock.Anything, "u1").Return(codes, nil)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.RegenerateBackupCodes(rr, authedRequest(http.MethodPost, "/v1/mfa/backup-codes", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var res struct {
		BackupCodes []string `json:"backup_codes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, codes, res.BackupCodes)
}

func TestMFARegenerate_ConcurrentModification(t *testing.T) {
	svc := &mockMFASvc{}
	svc.On("RegenerateBackupCodes", mock.Anything, "u1").
		Return(nil, domain.ErrConcurrentModification)

	h := NewMFAHandler(svc)
	rr := httptest.NewRecorder()
	h.RegenerateBackupCodes(rr, authedRequest(http.MethodPost, "/v1/mfa/backup-codes", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

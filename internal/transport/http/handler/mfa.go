package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/notes-api-nosql/internal/application/mfa"
	"github.com/notes-api-nosql/internal/pkg/validate"
	"github.com/notes-api-nosql/internal/transport/http/middleware"
)

// MFAHandler exposes the second-factor lifecycle for the authenticated user.
// Everything here operates on the caller's own account; there is no
// administrative path to another user's MFA settings.
type MFAHandler struct {
	svc mfa.Service
}

func NewMFAHandler(svc mfa.Service) *MFAHandler { return &MFAHandler{svc: svc} }

type codeRequest struct {
	Code string `json:"code" validate:"required"`
}

func decodeCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return "", false
	}
	return req.Code, true
}

func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.svc.StartSetup(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SetupQR serves the pending provisioning URI as a PNG. The optional size
// query parameter is in pixels.
func (h *MFAHandler) SetupQR(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := h.svc.SetupQR(r.Context(), claims.UserID, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *MFAHandler) Enable(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	code, ok := decodeCode(w, r)
	if !ok {
		return
	}
	if err := h.svc.Enable(r.Context(), claims.UserID, code); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Enabled bool `json:"enabled"`
	}{Enabled: true})
}

func (h *MFAHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	st, err := h.svc.GetStatus(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type disableRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Code            string `json:"code" validate:"required"`
	IsBackupCode    bool   `json:"is_backup_code"`
}

// Disable requires the account password in addition to a second factor, so a
// stolen session alone cannot strip MFA off the account.
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req disableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Disable(r.Context(), claims.UserID, req.CurrentPassword, req.Code, req.IsBackupCode); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Enabled bool `json:"enabled"`
	}{Enabled: false})
}

func (h *MFAHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	codes, err := h.svc.RegenerateBackupCodes(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		BackupCodes []string `json:"backup_codes"`
	}{BackupCodes: codes})
}

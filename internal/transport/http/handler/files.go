package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/notes-api-nosql/internal/application/file"
	"github.com/notes-api-nosql/internal/domain"
	s3infra "github.com/notes-api-nosql/internal/infrastructure/s3"
	"github.com/notes-api-nosql/internal/transport/http/middleware"
)

// maxUploadSize caps attachment uploads at 10 MiB.
const maxUploadSize = 10 << 20

// FileHandler handles note attachment endpoints.
type FileHandler struct {
	svc file.Service
}

func NewFileHandler(svc file.Service) *FileHandler { return &FileHandler{svc: svc} }

// Upload accepts a multipart form with a single "file" field and attaches it
// to the note in the path.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = s3infra.DetectContentType(header.Filename)
	}
	uploaded, err := h.svc.Upload(r.Context(), file.UploadInput{
		NoteID:      chi.URLParam(r, "id"),
		UserID:      claims.UserID,
		Reader:      f,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploaded)
}

func (h *FileHandler) ListByNote(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	files, err := h.svc.ListByNote(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if files == nil {
		files = []domain.File{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rc, f, err := h.svc.Download(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", f.Type)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	_, _ = io.Copy(w, rc)
}

// DownloadURL returns a short-lived presigned link instead of proxying the
// bytes through the API.
func (h *FileHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	url, err := h.svc.DownloadURL(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		URL string `json:"url"`
	}{URL: url})
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "attachment deleted"})
}

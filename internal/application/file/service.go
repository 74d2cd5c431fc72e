package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/notes-api-nosql/internal/domain"
	"github.com/notes-api-nosql/internal/pkg/id"
)

// presignTTL is how long attachment download links stay valid.
const presignTTL = 15 * time.Minute

type UploadInput struct {
	NoteID      string
	UserID      string
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

type Service interface {
	Upload(ctx context.Context, input UploadInput) (*domain.File, error)
	ListByNote(ctx context.Context, userID, noteID string) ([]domain.File, error)
	Download(ctx context.Context, userID, fileID string) (io.ReadCloser, *domain.File, error)
	DownloadURL(ctx context.Context, userID, fileID string) (string, error)
	Delete(ctx context.Context, userID, fileID string) error
}

type fileStore interface {
	Put(ctx context.Context, f *domain.File) error
	Get(ctx context.Context, fileID string) (*domain.File, error)
	ListByNote(ctx context.Context, noteID string) ([]domain.File, error)
	SoftDelete(ctx context.Context, fileID string) error
}

type noteStore interface {
	Get(ctx context.Context, noteID string) (*domain.Note, error)
}

type blobStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	blobs blobStore
	files fileStore
	notes noteStore
}

func NewService(blobs blobStore, files fileStore, notes noteStore) Service {
	return &service{blobs: blobs, files: files, notes: notes}
}

// Upload attaches a file to one of the caller's notes. The object key embeds
// the note ID plus a ULID so re-uploading the same filename never clobbers an
// earlier attachment.
func (s *service) Upload(ctx context.Context, input UploadInput) (*domain.File, error) {
	if _, err := s.ownedNote(ctx, input.UserID, input.NoteID); err != nil {
		return nil, err
	}
	safeName := sanitizeFilename(input.Filename)
	fileID := id.New()
	key := fmt.Sprintf("notes/%s/%s/%s", input.NoteID, fileID, safeName)

	hasher := sha256.New()
	tee := io.TeeReader(input.Reader, hasher)
	if _, err := s.blobs.Upload(ctx, key, tee, input.ContentType); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	f := &domain.File{
		FileID:    fileID,
		NoteID:    input.NoteID,
		UserID:    input.UserID,
		Object:    key,
		Size:      input.Size,
		Type:      input.ContentType,
		Name:      safeName,
		Hash:      hex.EncodeToString(hasher.Sum(nil)),
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.files.Put(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) ListByNote(ctx context.Context, userID, noteID string) ([]domain.File, error) {
	if _, err := s.ownedNote(ctx, userID, noteID); err != nil {
		return nil, err
	}
	return s.files.ListByNote(ctx, noteID)
}

func (s *service) Download(ctx context.Context, userID, fileID string) (io.ReadCloser, *domain.File, error) {
	f, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Download(ctx, f.Object)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

func (s *service) DownloadURL(ctx context.Context, userID, fileID string) (string, error) {
	f, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignedURL(ctx, f.Object, presignTTL)
}

func (s *service) Delete(ctx context.Context, userID, fileID string) error {
	f, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, f.Object); err != nil {
		return err
	}
	return s.files.SoftDelete(ctx, f.FileID)
}

func (s *service) ownedNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	n, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("note belongs to another user: %w", domain.ErrForbidden)
	}
	return n, nil
}

func (s *service) ownedFile(ctx context.Context, userID, fileID string) (*domain.File, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !f.Enable {
		return nil, fmt.Errorf("file not found: %w", domain.ErrNotFound)
	}
	if f.UserID != userID {
		return nil, fmt.Errorf("attachment belongs to another user: %w", domain.ErrForbidden)
	}
	return f, nil
}

func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "file"
	}
	return base
}

package note

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/notes-api-nosql/internal/domain"
	"github.com/notes-api-nosql/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldTitle      = "title"
	fieldContent    = "content"
	fieldCategoryID = "category_id"
	fieldPinned     = "pinned"
	fieldArchived   = "archived"
	fieldSearchText = "search_text"
)

type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateNoteRequest) (*domain.Note, error)
	List(ctx context.Context, userID string, filter domain.NoteFilter, limit int, cursor string) ([]domain.Note, string, error)
	Get(ctx context.Context, userID, noteID string) (*domain.Note, error)
	Update(ctx context.Context, userID, noteID string, req domain.UpdateNoteRequest) (*domain.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
}

type noteStore interface {
	Put(ctx context.Context, n *domain.Note) error
	Get(ctx context.Context, noteID string) (*domain.Note, error)
	ListByUser(ctx context.Context, userID string, filter domain.NoteFilter, limit int32, cursor string) ([]domain.Note, string, error)
	Update(ctx context.Context, noteID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, noteID string) error
}

type categoryStore interface {
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
}

type service struct {
	repo       noteStore
	categories categoryStore
}

func NewService(repo noteStore, categories categoryStore) Service {
	return &service{repo: repo, categories: categories}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateNoteRequest) (*domain.Note, error) {
	if err := s.checkCategory(ctx, userID, req.CategoryID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	n := &domain.Note{
		NoteID:     id.New(),
		UserID:     userID,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Content:    req.Content,
		Pinned:     req.Pinned,
		SearchText: searchText(req.Title, req.Content),
		Enable:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *service) List(ctx context.Context, userID string, filter domain.NoteFilter, limit int, cursor string) ([]domain.Note, string, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, filter, int32(limit), cursor)
}

func (s *service) Get(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return s.getOwned(ctx, userID, noteID)
}

func (s *service) Update(ctx context.Context, userID, noteID string, req domain.UpdateNoteRequest) (*domain.Note, error) {
	n, err := s.getOwned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	title, content := n.Title, n.Content
	if req.Title != nil {
		title = *req.Title
		updates[fieldTitle] = title
	}
	if req.Content != nil {
		content = *req.Content
		updates[fieldContent] = content
	}
	if req.Title != nil || req.Content != nil {
		updates[fieldSearchText] = searchText(title, content)
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, userID, req.CategoryID); err != nil {
			return nil, err
		}
		updates[fieldCategoryID] = *req.CategoryID
	}
	if req.Pinned != nil {
		updates[fieldPinned] = *req.Pinned
	}
	if req.Archived != nil {
		updates[fieldArchived] = *req.Archived
	}
	if len(updates) == 0 {
		return n, nil
	}
	if err := s.repo.Update(ctx, noteID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, noteID)
}

func (s *service) Delete(ctx context.Context, userID, noteID string) error {
	if _, err := s.getOwned(ctx, userID, noteID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, noteID)
}

// getOwned loads the note and enforces ownership. Other users' notes are
// reported as forbidden, not hidden; IDs are unguessable ULIDs anyway.
func (s *service) getOwned(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	n, err := s.repo.Get(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("note belongs to another user: %w", domain.ErrForbidden)
	}
	return n, nil
}

// checkCategory validates that a referenced category exists and belongs to
// the same user. An empty string detaches the note from its category.
func (s *service) checkCategory(ctx context.Context, userID string, categoryID *string) error {
	if categoryID == nil || *categoryID == "" {
		return nil
	}
	c, err := s.categories.Get(ctx, *categoryID)
	if err != nil {
		return fmt.Errorf("category does not exist: %w", domain.ErrBadRequest)
	}
	if c.UserID != userID {
		return fmt.Errorf("category belongs to another user: %w", domain.ErrForbidden)
	}
	return nil
}

func searchText(title, content string) string {
	return strings.ToLower(title + " " + content)
}

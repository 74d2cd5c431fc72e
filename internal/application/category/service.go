package category

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/notes-api-nosql/internal/domain"
	"github.com/notes-api-nosql/internal/pkg/id"
)

type Service interface {
	Create(ctx context.Context, userID string, req domain.CategoryInput) (*domain.Category, error)
	List(ctx context.Context, userID string) ([]domain.Category, error)
	Update(ctx context.Context, userID, categoryID string, req domain.CategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, userID, categoryID string) error
}

type categoryStore interface {
	Put(ctx context.Context, c *domain.Category) error
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Category, error)
	Update(ctx context.Context, categoryID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, categoryID string) error
}

type noteDetacher interface {
	DetachCategory(ctx context.Context, userID, categoryID string) error
}

type service struct {
	repo  categoryStore
	notes noteDetacher
}

func NewService(repo categoryStore, notes noteDetacher) Service {
	return &service{repo: repo, notes: notes}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CategoryInput) (*domain.Category, error) {
	if err := s.checkNameFree(ctx, userID, req.Name, ""); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.Category{
		CategoryID: id.New(),
		UserID:     userID,
		Name:       req.Name,
		Color:      req.Color,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Category, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID, categoryID string, req domain.CategoryInput) (*domain.Category, error) {
	if _, err := s.getOwned(ctx, userID, categoryID); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, userID, req.Name, categoryID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"name": req.Name}
	if req.Color != "" {
		updates["color"] = req.Color
	}
	if err := s.repo.Update(ctx, categoryID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, categoryID)
}

// Delete removes the category and detaches it from every note that used it.
// Notes survive; only the grouping disappears.
func (s *service) Delete(ctx context.Context, userID, categoryID string) error {
	if _, err := s.getOwned(ctx, userID, categoryID); err != nil {
		return err
	}
	if err := s.notes.DetachCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	return s.repo.HardDelete(ctx, categoryID)
}

func (s *service) getOwned(ctx context.Context, userID, categoryID string) (*domain.Category, error) {
	c, err := s.repo.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("category belongs to another user: %w", domain.ErrForbidden)
	}
	return c, nil
}

// checkNameFree enforces case-insensitive name uniqueness within a user's
// categories. The per-user list is small, so a scan is fine.
func (s *service) checkNameFree(ctx context.Context, userID, name, selfID string) error {
	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, c := range existing {
		if c.CategoryID != selfID && strings.EqualFold(c.Name, name) {
			return fmt.Errorf("category name already in use: %w", domain.ErrConflict)
		}
	}
	return nil
}

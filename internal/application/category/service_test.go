package category

import (
	"context"
	"errors"
	"testing"

	"github.com/notes-api-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCategoryStore struct{ mock.Mock }

func (m *mockCategoryStore) Put(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockCategoryStore) Get(ctx context.Context, categoryID string) (*domain.Category, error) {
	args := m.Called(ctx, categoryID)
	if c, _ := args.Get(0).(*domain.Category); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCategoryStore) ListByUser(ctx context.Context, userID string) ([]domain.Category, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Category), args.Error(1)
}
func (m *mockCategoryStore) Update(ctx context.Context, categoryID string, updates map[string]interface{}) error {
	return m.Called(ctx, categoryID, updates).Error(0)
}
func (m *mockCategoryStore) HardDelete(ctx context.Context, categoryID string) error {
	return m.Called(ctx, categoryID).Error(0)
}

type mockNoteDetacher struct{ mock.Mock }

func (m *mockNoteDetacher) DetachCategory(ctx context.Context, userID, categoryID string) error {
	return m.Called(ctx, userID, categoryID).Error(0)
}

func TestCreate_DuplicateNameCaseInsensitive(t *testing.T) {
	cs := &mockCategoryStore{}
	cs.On("ListByUser", mock.Anything, "u1").Return([]domain.Category{
		{CategoryID: "c1", UserID: "u1", Name: "Work"},
	}, nil)

	svc := NewService(cs, &mockNoteDetacher{})
	_, err := svc.Create(context.Background(), "u1", domain.CategoryInput{Name: "work"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	cs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreate_HappyPath(t *testing.T) {
	cs := &mockCategoryStore{}
	cs.On("ListByUser", mock.Anything, "u1").Return([]domain.Category{}, nil)
	cs.On("Put", mock.Anything, mock.AnythingOfType("*domain.Category")).Return(nil)

	svc := NewService(cs, &mockNoteDetacher{})
	c, err := svc.Create(context.Background(), "u1", domain.CategoryInput{Name: "Work", Color: "#ff0000"})

	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "Work", c.Name)
	assert.NotEmpty(t, c.CategoryID)
	cs.AssertExpectations(t)
}

func TestUpdate_RenamingToOwnNameIsAllowed(t *testing.T) {
	cs := &mockCategoryStore{}
	existing := &domain.Category{CategoryID: "c1", UserID: "u1", Name: "Work"}
	cs.On("Get", mock.Anything, "c1").Return(existing, nil)
	cs.On("ListByUser", mock.Anything, "u1").Return([]domain.Category{*existing}, nil)
	cs.On("Update", mock.Anything, "c1", mock.Anything).Return(nil)

	svc := NewService(cs, &mockNoteDetacher{})
	_, err := svc.Update(context.Background(), "u1", "c1", domain.CategoryInput{Name: "work"})

	require.NoError(t, err)
	cs.AssertExpectations(t)
}

func TestUpdate_ForeignCategory(t *testing.T) {
	cs := &mockCategoryStore{}
	cs.On("Get", mock.Anything, "c1").Return(&domain.Category{CategoryID: "c1", UserID: "other"}, nil)

	svc := NewService(cs, &mockNoteDetacher{})
	_, err := svc.Update(context.Background(), "u1", "c1", domain.CategoryInput{Name: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestDelete_DetachesNotesBeforeRemoval(t *testing.T) {
	cs := &mockCategoryStore{}
	nd := &mockNoteDetacher{}
	cs.On("Get", mock.Anything, "c1").Return(&domain.Category{CategoryID: "c1", UserID: "u1"}, nil)
	nd.On("DetachCategory", mock.Anything, "u1", "c1").Return(nil)
	cs.On("HardDelete", mock.Anything, "c1").Return(nil)

	svc := NewService(cs, nd)
	require.NoError(t, svc.Delete(context.Background(), "u1", "c1"))
	nd.AssertExpectations(t)
	cs.AssertExpectations(t)
}

func TestDelete_DetachFailureLeavesCategory(t *testing.T) {
	cs := &mockCategoryStore{}
	nd := &mockNoteDetacher{}
	cs.On("Get", mock.Anything, "c1").Return(&domain.Category{CategoryID: "c1", UserID: "u1"}, nil)
	nd.On("DetachCategory", mock.Anything, "u1", "c1").Return(errors.New("dynamo error"))

	svc := NewService(cs, nd)
	err := svc.Delete(context.Background(), "u1", "c1")

	require.Error(t, err)
	cs.AssertNotCalled(t, "HardDelete", mock.Anything, mock.Anything)
}

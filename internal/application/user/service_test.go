package user

import (
	"context"
	"errors"
	"testing"

	"github.com/notes-api-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockUserStore) SoftDelete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) SoftDeleteByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, role, sessionID string) (string, error) {
	args := m.Called(userID, role, sessionID)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func newService(us *mockUserStore, ss *mockSessionStore, jwt *mockJWTSigner) Service {
	return NewService(ServiceDeps{
		UserRepo:    us,
		SessionRepo: ss,
		JWTProvider: jwt,
	})
}

func baseReq() domain.CreateUserRequest {
	return domain.CreateUserRequest{
		Username:  "alice",
		Password:  "password123",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
	}
}

func ptr[T any](v T) *T { return &v }

// --- Register tests ---

func TestRegister_UsernameConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{}, nil)

	svc := newService(us, nil, nil)
	_, err := svc.Register(context.Background(), baseReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	us.AssertExpectations(t)
}

func TestRegister_EmailConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(&domain.User{}, nil)

	svc := newService(us, nil, nil)
	_, err := svc.Register(context.Background(), baseReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	us.AssertExpectations(t)
}

func TestRegister_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	svc := newService(us, nil, nil)
	u, err := svc.Register(context.Background(), baseReq())

	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.True(t, u.Enable)
	assert.NotEqual(t, "password123", u.PasswordHash)
	us.AssertExpectations(t)
}

func TestRegisterWithSession_IssuesBearerAndRefresh(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	jwt := &mockJWTSigner{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.Anything).Return(nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt.On("Sign", mock.Anything, domain.RoleUser, mock.Anything).Return("bearer", nil)

	svc := newService(us, ss, jwt)
	sess, bearer, refresh, err := svc.RegisterWithSession(context.Background(), baseReq())

	require.NoError(t, err)
	assert.Equal(t, "bearer", bearer)
	assert.NotEmpty(t, refresh)
	require.NotNil(t, sess)
	assert.Equal(t, sess.User.Username, "alice")
	ss.AssertExpectations(t)
}

// --- Update tests ---

func TestUpdate_EmptyRequest_ReturnsExistingUser(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{UserID: "u1", Username: "alice"}
	us.On("Get", mock.Anything, "u1").Return(existing, nil)

	svc := newService(us, nil, nil)
	u, err := svc.Update(context.Background(), "u1", domain.UpdateUserRequest{})

	require.NoError(t, err)
	assert.Equal(t, existing, u)
	us.AssertExpectations(t)
}

func TestUpdate_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	updated := &domain.User{UserID: "u1", Username: "bob"}
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(updated, nil)

	svc := newService(us, nil, nil)
	u, err := svc.Update(context.Background(), "u1", domain.UpdateUserRequest{
		Username: ptr("bob"),
	})

	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	us.AssertExpectations(t)
}

// --- Delete tests ---

func TestDelete_PropagatesStoreError(t *testing.T) {
	us := &mockUserStore{}
	storeErr := errors.New("dynamo error")
	us.On("SoftDelete", mock.Anything, "u1").Return(storeErr)

	svc := newService(us, &mockSessionStore{}, nil)
	err := svc.Delete(context.Background(), "u1")

	require.Error(t, err)
	assert.Equal(t, storeErr, err)
	us.AssertExpectations(t)
}

func TestDelete_AlsoDeletesSessions(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	us.On("SoftDelete", mock.Anything, "u1").Return(nil)
	ss.On("SoftDeleteByUser", mock.Anything, "u1").Return(nil)

	svc := newService(us, ss, nil)
	err := svc.Delete(context.Background(), "u1")

	require.NoError(t, err)
	us.AssertExpectations(t)
	ss.AssertExpectations(t)
}

// --- ChangePassword tests ---

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("current"), bcrypt.MinCost)
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: string(hash)}, nil)

	svc := newService(us, nil, nil)
	err := svc.ChangePassword(context.Background(), "u1", "wrong", "newpassword1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_HappyPath(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("current"), bcrypt.MinCost)
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: string(hash)}, nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)

	svc := newService(us, nil, nil)
	err := svc.ChangePassword(context.Background(), "u1", "current", "newpassword1")

	require.NoError(t, err)
	us.AssertExpectations(t)
}

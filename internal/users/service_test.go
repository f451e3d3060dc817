package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ms-events/internal/apperrors"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/users"
	userdb "ms-events/internal/users/db"
	"ms-events/internal/validation"
)

// MockUserDBLayer is a mock implementation of the DBLayer interface
type MockUserDBLayer struct {
	mock.Mock
}

func (m *MockUserDBLayer) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserDBLayer) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserDBLayer) UserExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func newService(db users.DBLayer) *users.UserService {
	return users.NewUserService(db, &auth.BcryptHasher{Cost: bcrypt.MinCost}, validation.New(), logger.NewNop())
}

var validRequest = models.RegisterRequest{Email: "alice@example.com", Username: "alice", Password: "password1"}

func TestRegisterHashesPassword(t *testing.T) {
	mockDB := new(MockUserDBLayer)
	mockDB.On("UserExists", mock.Anything, "alice@example.com").Return(false, nil)
	mockDB.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "alice@example.com" &&
			u.Role == models.RoleUser &&
			u.PasswordHash != "password1" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password1")) == nil &&
			!u.CreatedAt.IsZero()
	})).Return(nil)

	require.NoError(t, newService(mockDB).Register(context.Background(), validRequest))
	mockDB.AssertExpectations(t)
}

func TestRegisterExistingEmail(t *testing.T) {
	mockDB := new(MockUserDBLayer)
	mockDB.On("UserExists", mock.Anything, "alice@example.com").Return(true, nil)

	err := newService(mockDB).Register(context.Background(), validRequest)

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Equal(t, "User already exists with this email", err.Error())
	mockDB.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRegisterLosesRace(t *testing.T) {
	mockDB := new(MockUserDBLayer)
	mockDB.On("UserExists", mock.Anything, "alice@example.com").Return(false, nil)
	mockDB.On("CreateUser", mock.Anything, mock.Anything).Return(userdb.ErrDuplicateUser)

	err := newService(mockDB).Register(context.Background(), validRequest)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	mockDB := new(MockUserDBLayer)

	err := newService(mockDB).Register(context.Background(), models.RegisterRequest{Email: "bad", Username: "al", Password: "x"})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockDB.AssertNotCalled(t, "UserExists", mock.Anything, mock.Anything)
}

func TestRegisterStoreFailure(t *testing.T) {
	mockDB := new(MockUserDBLayer)
	mockDB.On("UserExists", mock.Anything, "alice@example.com").Return(false, errors.New("connection refused"))

	err := newService(mockDB).Register(context.Background(), validRequest)

	assert.ErrorIs(t, err, apperrors.ErrInternal)
	assert.NotContains(t, err.Error(), "connection refused")
}

func TestFindByEmail(t *testing.T) {
	mockDB := new(MockUserDBLayer)
	alice := &models.User{Email: "alice@example.com"}
	mockDB.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	mockDB.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, userdb.ErrUserNotFound)
	svc := newService(mockDB)

	got, err := svc.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	_, err = svc.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

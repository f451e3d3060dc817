package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-events/internal/apperrors"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	userdb "ms-events/internal/users/db"
)

type DBLayer interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserExists(ctx context.Context, email string) (bool, error)
}

type Validator interface {
	Struct(s any) error
}

type UserService struct {
	DB        DBLayer
	Hasher    auth.PasswordHasher
	Validator Validator
	Logger    *logger.Logger
	now       func() time.Time
}

func NewUserService(db DBLayer, hasher auth.PasswordHasher, v Validator, l *logger.Logger) *UserService {
	return &UserService{DB: db, Hasher: hasher, Validator: v, Logger: l, now: time.Now}
}

func userExistsError() error {
	return apperrors.AlreadyExists("User already exists with this email")
}

// Register creates a USER account. The insert is the final arbiter of
// uniqueness, so concurrent registrations of one email yield exactly one user.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := s.Validator.Struct(req); err != nil {
		return err
	}

	exists, err := s.DB.UserExists(ctx, req.Email)
	if err != nil {
		return apperrors.Internal("Failed to register the user due to a database error.", err)
	}
	if exists {
		return userExistsError()
	}

	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return apperrors.Internal("Failed to register the user.", err)
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		if errors.Is(err, userdb.ErrDuplicateUser) {
			return userExistsError()
		}
		return apperrors.Internal("Failed to register the user due to a database error.", err)
	}

	s.Logger.Info("USER", fmt.Sprintf("Registered user %s", user.Email))
	return nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.DB.GetUserByEmail(ctx, email)
	if errors.Is(err, userdb.ErrUserNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("User not found with email: %s", email))
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

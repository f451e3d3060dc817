package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ms-events/internal/apperrors"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// UserFinder is the slice of the user directory the auth flow needs.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type Service struct {
	Users  UserFinder
	Hasher PasswordHasher
	Tokens *TokenService
	Logger *logger.Logger

	decoyOnce sync.Once
	decoyHash string
}

func NewService(users UserFinder, hasher PasswordHasher, tokens *TokenService, l *logger.Logger) *Service {
	return &Service{Users: users, Hasher: hasher, Tokens: tokens, Logger: l}
}

// Login returns a signed token. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.Logger.LogSecurity("LOGIN", fmt.Sprintf("unknown email %s", email))
			s.Hasher.Check(s.decoy(), password)
			return "", apperrors.ErrInvalidCredentials
		}
		return "", apperrors.Internal("Login failed due to a database error.", err)
	}

	if !s.Hasher.Check(user.PasswordHash, password) {
		s.Logger.LogSecurity("LOGIN", fmt.Sprintf("bad password for %s", email))
		return "", apperrors.ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(user.Email, user.Roles())
	if err != nil {
		return "", apperrors.Internal("Login failed.", err)
	}

	s.Logger.Info("AUTH", fmt.Sprintf("User %s logged in", user.Email))
	return token, nil
}

// decoy is a hash of the same cost as stored ones, checked against for
// unknown emails so both failure paths take the same time.
func (s *Service) decoy() string {
	s.decoyOnce.Do(func() {
		hash, err := s.Hasher.Hash("not-a-real-password")
		if err != nil {
			s.Logger.Warn("AUTH", fmt.Sprintf("Failed to prepare decoy hash: %v", err))
			return
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}

// ResolveCurrentUser maps a bearer token onto a stored user.
func (s *Service) ResolveCurrentUser(ctx context.Context, token string) (*models.User, error) {
	principal, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, apperrors.Unauthenticated("Invalid or expired token")
	}

	user, err := s.Users.FindByEmail(ctx, principal.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthenticated("User no longer exists")
		}
		return nil, apperrors.Internal("Could not resolve the current user.", err)
	}
	return user, nil
}

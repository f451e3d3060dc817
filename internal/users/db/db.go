package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-events/internal/database"
	"ms-events/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := d.Bun.NewInsert().Model(user).Exec(ctx)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

// UserExists checks if a user with the given email exists in the database
func (d *DB) UserExists(ctx context.Context, email string) (bool, error) {
	exists, err := d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ?", email).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

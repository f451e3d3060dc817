package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)


func TestSQLiteSchemaAndUniqueViolation(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, SQLiteDSN: "file::memory:"}, logger.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, CreateSchema(ctx, db))
	// Idempotent.
	require.NoError(t, CreateSchema(ctx, db))

	user := &models.User{Email: "alice@example.com", Username: "alice", PasswordHash: "x", Role: models.RoleUser, CreatedAt: time.Now()}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	require.NoError(t, DropSchema(ctx, db))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, logger.NewNop())
	assert.Error(t, err)
}

// Package database opens the bun handle for the configured driver and
// bootstraps the schema for drivers that do not use SQL migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

const (
	maxRetries = 5
	retryDelay = 2 * time.Second
)

// Open connects to Postgres (with retries, the container may still be
// starting) or to SQLite.
func Open(ctx context.Context, cfg config.DatabaseConfig, l *logger.Logger) (*bun.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return openSQLite(ctx, cfg, l)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, l)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, l *logger.Logger) (*bun.DB, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		l.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			l.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(retryDelay)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		l.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres after %d attempts: %w", maxRetries, err)
	}

	applyPool(sqldb, cfg)
	l.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, l *logger.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLiteDSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps in-memory databases shared and serializes writers.
	sqldb.SetMaxOpenConns(1)

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	l.Info("DATABASE", fmt.Sprintf("SQLite database opened at %s", cfg.SQLiteDSN))
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func applyPool(sqldb *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	}
}

// Models lists the tables in dependency order.
func Models() []interface{} {
	return []interface{}{
		(*models.User)(nil),
		(*models.Event)(nil),
		(*models.Attendance)(nil),
	}
}

// CreateSchema creates the tables from the bun models. Postgres deployments
// use the SQL migrations instead.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, m := range Models() {
		q := db.NewCreateTable().Model(m).IfNotExists()
		if _, ok := m.(*models.Event); ok {
			q = q.ForeignKey(`("creator_email") REFERENCES "users" ("email")`)
		}
		if _, ok := m.(*models.Attendance); ok {
			q = q.ForeignKey(`("event_id") REFERENCES "events" ("id") ON DELETE CASCADE`).
				ForeignKey(`("user_email") REFERENCES "users" ("email")`)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

// DropSchema removes every table, dependents first.
func DropSchema(ctx context.Context, db *bun.DB) error {
	ms := Models()
	for i := len(ms) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(ms[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", ms[i], err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a primary key or unique
// constraint failure on either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: PRIMARY KEY") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

package database

import (
	"context"
	"fmt"

	"ms-events/internal/config"
	"ms-events/internal/database/migrations"
	"ms-events/internal/logger"
)

// Migrate applies the embedded migrations over a pool of its own and closes
// it before returning. The migrate driver holds a connection for as long as
// it is open, so it must not share the serving pool.
func Migrate(ctx context.Context, cfg config.DatabaseConfig, l *logger.Logger) error {
	if cfg.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations only run against %s, got %q", config.DriverPostgres, cfg.Driver)
	}

	migDB, err := Open(ctx, cfg, l)
	if err != nil {
		return err
	}

	runner := migrations.NewRunner(migDB, migrations.DefaultOptions(), l)
	defer func() {
		if err := runner.Close(); err != nil {
			l.Warn("MIGRATE", fmt.Sprintf("Failed to close migration connection: %v", err))
		}
	}()

	return runner.RunMigrations()
}

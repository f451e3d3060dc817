package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	"ms-events/internal/logger"
)

// runnerFactory opens the database and returns a migration runner for it.
type runnerFactory func(ctx context.Context) (*migrations.Runner, error)

func newRootCmd(open runnerFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the events database schema",
		Long:          `Apply or roll back the embedded PostgreSQL migrations for the events service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRunner(cmd, open, func(r *migrations.Runner) error {
					return r.MigrateUp()
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRunner(cmd, open, func(r *migrations.Runner) error {
					return r.MigrateDown()
				})
			},
		},
		&cobra.Command{
			Use:   "to VERSION",
			Short: "Migrate up or down to VERSION",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return withRunner(cmd, open, func(r *migrations.Runner) error {
					return r.MigrateTo(uint(version))
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRunner(cmd, open, func(r *migrations.Runner) error {
					version, dirty, err := r.Version()
					if err != nil {
						return err
					}
					cmd.Printf("version=%d dirty=%t\n", version, dirty)
					return nil
				})
			},
		},
	)

	return root
}

func withRunner(cmd *cobra.Command, open runnerFactory, fn func(*migrations.Runner) error) error {
	runner, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer runner.Close()

	if err := fn(runner); err != nil {
		return err
	}
	cmd.Println("Done")
	return nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	cfg.Log.Service = "events-migrate"
	logger := logger.NewLogger(cfg.Log)
	defer logger.Close()

	open := func(ctx context.Context) (*migrations.Runner, error) {
		if cfg.Database.Driver != config.DriverPostgres {
			return nil, fmt.Errorf("migrations only run against %s, got DB_DRIVER=%s", config.DriverPostgres, cfg.Database.Driver)
		}
		bunDB, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return migrations.NewRunner(bunDB, migrations.DefaultOptions(), logger), nil
	}

	if err := newRootCmd(open).ExecuteContext(context.Background()); err != nil {
		logger.Error("MIGRATE", err.Error())
		os.Exit(1)
	}
}

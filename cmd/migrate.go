package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"signalscore/internal/adapter/outbound/repository"
	"signalscore/internal/application/common/retry"
	"signalscore/internal/application/common/slogger"
	"signalscore/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// ErrDatabaseNotConfigured is returned by migrate subcommands when no database is set.
var ErrDatabaseNotConfigured = errors.New("database is not configured: set database.url or database.host")

// newMigrateCmd creates and returns the migrate command.
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Run the embedded goose migrations that create the score and session event tables.

Configuration for the database connection is loaded from config files and environment variables.`,
	}

	cmd.AddCommand(
		newMigrationCmd("up", "Apply all pending migrations", func(ctx context.Context, m *repository.Migrator) (any, error) {
			return m.Up(ctx)
		}),
		newMigrationCmd("down", "Roll back the most recent migration", func(ctx context.Context, m *repository.Migrator) (any, error) {
			return m.Down(ctx)
		}),
		newMigrationCmd("status", "List migrations and whether they are applied", func(ctx context.Context, m *repository.Migrator) (any, error) {
			return m.Status(ctx)
		}),
		newMigrationCmd("version", "Print the current schema version", func(ctx context.Context, m *repository.Migrator) (any, error) {
			v, err := m.Version(ctx)
			return map[string]int64{"version": v}, err
		}),
	)
	return cmd
}

type migrationFunc func(ctx context.Context, m *repository.Migrator) (any, error)

func newMigrationCmd(use, short string, run migrationFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd.Context(), GetConfig(), cmd.OutOrStdout(), run)
		},
	}
}

// runMigration opens the configured database, runs fn and writes its result as JSON to out.
func runMigration(ctx context.Context, cfg *config.Config, out io.Writer, fn migrationFunc) error {
	if cfg == nil || !cfg.Database.Enabled() {
		return ErrDatabaseNotConfigured
	}

	pool, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := repository.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			slogger.ErrorWithError(ctx, err, "Failed to close migrator", nil)
		}
	}()

	result, err := fn(ctx, migrator)
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

// connectDatabase opens the pool, retrying transient failures while the database starts.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	policy := retry.DefaultConfig()
	policy.MaxRetries = cfg.ConnectRetries

	var pool *pgxpool.Pool
	err := retry.NewExecutor("database connect", policy).Execute(ctx, func(ctx context.Context) error {
		var err error
		pool, err = repository.NewDatabaseConnection(ctx, repository.DatabaseConfig{
			DSN:            cfg.DSN(),
			MaxConnections: cfg.MaxConnections,
			MinConnections: cfg.MinConnections,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// migrateUp applies pending migrations on pool, as done by the server on startup.
func migrateUp(ctx context.Context, pool *pgxpool.Pool) ([]repository.AppliedMigration, error) {
	migrator, err := repository.NewMigrator(pool)
	if err != nil {
		return nil, err
	}
	defer func() { _ = migrator.Close() }()
	return migrator.Up(ctx)
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

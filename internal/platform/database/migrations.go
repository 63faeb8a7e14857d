package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

// MigrationTableName is the goose version table.
const MigrationTableName = "schema_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

// gooseLogger forwards goose output to slog without ever exiting the process.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", nil
	case DriverSQLite:
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

func withGoose(driver string, logger *slog.Logger, fn func() error) error {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetTableName(MigrationTableName)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return fn()
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sqlx.DB, driver string, logger *slog.Logger) error {
	return withGoose(driver, logger, func() error {
		if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, db *sqlx.DB, driver string, logger *slog.Logger) error {
	return withGoose(driver, logger, func() error {
		if err := goose.DownContext(ctx, db.DB, "migrations"); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return nil
	})
}

// MigrationStatus logs the applied state of every migration.
func MigrationStatus(ctx context.Context, db *sqlx.DB, driver string, logger *slog.Logger) error {
	return withGoose(driver, logger, func() error {
		return goose.StatusContext(ctx, db.DB, "migrations")
	})
}

// MigrationVersion returns the current schema version.
func MigrationVersion(ctx context.Context, db *sqlx.DB, driver string, logger *slog.Logger) (int64, error) {
	var version int64
	err := withGoose(driver, logger, func() error {
		v, err := goose.GetDBVersionContext(ctx, db.DB)
		version = v
		return err
	})
	return version, err
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/nhohoai/study-engine/internal/platform/database"
)

// migrator runs the migrate subcommands against one open database.
type migrator struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
	out    io.Writer
}

func (m migrator) up(ctx context.Context) error {
	if err := database.Migrate(ctx, m.db, m.driver, m.logger); err != nil {
		return err
	}
	return m.version(ctx)
}

func (m migrator) down(ctx context.Context) error {
	if err := database.MigrateDown(ctx, m.db, m.driver, m.logger); err != nil {
		return err
	}
	return m.version(ctx)
}

func (m migrator) status(ctx context.Context) error {
	return database.MigrationStatus(ctx, m.db, m.driver, m.logger)
}

func (m migrator) version(ctx context.Context) error {
	v, err := database.MigrationVersion(ctx, m.db, m.driver, m.logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(m.out, "schema version: %d\n", v)
	return err
}

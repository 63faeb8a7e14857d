package database_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/nhohoai/study-engine/internal/platform/database"
	"github.com/nhohoai/study-engine/internal/testdb"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestDB opens a migrated in-memory sqlite database.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return testdb.Open(t, database.DriverSQLite)
}

// forEachDriver runs fn against a fresh database of every available driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, db *sqlx.DB)) {
	t.Helper()
	for _, driver := range testdb.Drivers() {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			fn(t, testdb.Open(t, driver))
		})
	}
}

package testdb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/nhohoai/study-engine/internal/config"
	"github.com/nhohoai/study-engine/internal/platform/database"
)

// EnvPostgresURL names the variable holding the postgres test database URL.
const EnvPostgresURL = "STUDY_TEST_DATABASE_URL"

// TestTimeout bounds setup and teardown statements.
const TestTimeout = 10 * time.Second

// PostgresURL returns the configured postgres test database URL, if any.
func PostgresURL() string {
	return os.Getenv(EnvPostgresURL)
}

// Drivers lists the drivers tests can run against: sqlite always, postgres
// when a test database is configured.
func Drivers() []string {
	drivers := []string{database.DriverSQLite}
	if PostgresURL() != "" {
		drivers = append(drivers, database.DriverPostgres)
	}
	return drivers
}

// Open returns a migrated, isolated database for driver. Postgres tests are
// skipped when no test database is configured.
func Open(t testing.TB, driver string) *sqlx.DB {
	t.Helper()
	switch driver {
	case database.DriverSQLite:
		return migrated(t, config.DatabaseConfig{Driver: driver, URL: ":memory:"})
	case database.DriverPostgres:
		return openPostgres(t)
	default:
		t.Fatalf("unsupported test driver %q", driver)
		return nil
	}
}

func openPostgres(t testing.TB) *sqlx.DB {
	t.Helper()
	base := PostgresURL()
	if base == "" {
		t.Skipf("%s not set - skipping postgres test", EnvPostgresURL)
	}

	schema := "test_" + strings.ToLower(ulid.Make().String())
	admin := connect(t, config.DatabaseConfig{Driver: database.DriverPostgres, URL: base})
	exec(t, admin, "CREATE SCHEMA "+schema)
	t.Cleanup(func() {
		exec(t, admin, "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
		_ = admin.Close()
	})

	u, err := url.Parse(base)
	require.NoError(t, err, "invalid %s", EnvPostgresURL)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	return migrated(t, config.DatabaseConfig{Driver: database.DriverPostgres, URL: u.String()})
}

func connect(t testing.TB, cfg config.DatabaseConfig) *sqlx.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := database.Open(ctx, cfg, discardLogger())
	require.NoError(t, err, "failed to open %s test database", cfg.Driver)
	return db
}

// migrated connects to cfg and applies every migration. The connection is
// closed when the test ends.
func migrated(t testing.TB, cfg config.DatabaseConfig) *sqlx.DB {
	t.Helper()
	db := connect(t, cfg)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, database.Migrate(ctx, db, cfg.Driver, discardLogger()), "failed to migrate test database")
	return db
}

func exec(t testing.TB, db *sqlx.DB, stmt string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		t.Errorf("%s: %v", stmt, err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CountRows returns the number of rows in table.
func CountRows(t testing.TB, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)))
	return n
}

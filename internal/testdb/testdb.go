// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database. Tests opt in by setting MNEMO_TEST_DB_URL; without it
// they skip.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// EnvTestDBURL names the environment variable holding the connection string
// for the integration test database.
const EnvTestDBURL = "MNEMO_TEST_DB_URL"

// connectTimeout bounds the initial ping so a wrong URL fails fast.
const connectTimeout = 5 * time.Second

// URL returns the configured test database URL, or "" when integration tests
// are disabled.
func URL() string {
	return os.Getenv(EnvTestDBURL)
}

// SkipIfNotConfigured skips the calling test when no test database is
// configured.
func SkipIfNotConfigured(t *testing.T) {
	t.Helper()
	if URL() == "" {
		t.Skipf("skipping integration test: %s not set", EnvTestDBURL)
	}
}

// Open connects to the test database, applies all migrations, and registers a
// cleanup that closes the connection. It skips the test when no database is
// configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	SkipIfNotConfigured(t)

	db, err := sql.Open("pgx", URL())
	require.NoError(t, err, "opening test database")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "pinging test database")

	dir, err := migrationsDir()
	require.NoError(t, err, "locating migrations directory")
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, dir), "applying migrations")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, keeping the
// test database clean between tests.
func WithTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.Begin()
	require.NoError(t, err, "beginning test transaction")
	defer func() { _ = tx.Rollback() }()
	fn(tx)
}

// migrationsDir walks up from the working directory until it finds the
// server's migration files.
func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, "cmd", "server", "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("migrations directory not found above working directory")
		}
		dir = parent
	}
}

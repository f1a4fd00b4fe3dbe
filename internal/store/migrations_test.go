package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyMigrationsCreatesSchema(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, ApplyMigrations(context.Background(), db))

	for _, table := range []string{"metadata", "packages", "blobs", "files", "schema_version"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	var version string
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, ApplyMigrations(context.Background(), db))
	require.NoError(t, ApplyMigrations(context.Background(), db))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count))
	require.Equal(t, 1, count)
}

func TestRollbackMigrationDropsTables(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, ApplyMigrations(context.Background(), db))
	require.NoError(t, RollbackMigration(context.Background(), db))

	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='packages'").Scan(&name)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

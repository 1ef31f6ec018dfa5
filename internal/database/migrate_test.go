package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateSQLiteCreatesSchema(t *testing.T) {
	db, err := Open(DriverSQLite, "file:migrate_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(context.Background(), db, DriverSQLite))
	// A second run has nothing to apply.
	require.NoError(t, Migrate(context.Background(), db, DriverSQLite))

	for _, table := range []string{"users", "tokens", "collections", "collection_members", "records", "record_rates"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestMigrateRejectsUnknownDriver(t *testing.T) {
	require.Error(t, Migrate(context.Background(), nil, "postgres"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "")
	require.Error(t, err)
}

func TestSQLiteEnforcesForeignKeys(t *testing.T) {
	db, err := Open(DriverSQLite, "file:fk_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(context.Background(), db, DriverSQLite))

	_, err = db.Exec("INSERT INTO records (collection_id, name, date, created_at, updated_at) VALUES (999, 'x', '2024-01-01', '2024-01-01', '2024-01-01')")
	require.Error(t, err)
}

func TestSQLiteForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	db, err := Open(DriverSQLite, "file:fk_pool_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(ctx, db, DriverSQLite))

	db.SetMaxOpenConns(2)
	first, err := db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sql.Conn{first, second} {
		var on int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on))
		require.Equal(t, 1, on)
	}
}

func TestWithForeignKeys(t *testing.T) {
	require.Equal(t, "file:x.db?_pragma=foreign_keys(1)", withForeignKeys("file:x.db"))
	require.Equal(t, "file:x?mode=memory&_pragma=foreign_keys(1)", withForeignKeys("file:x?mode=memory"))
	require.Equal(t, "file:x?_pragma=foreign_keys(0)", withForeignKeys("file:x?_pragma=foreign_keys(0)"))
}

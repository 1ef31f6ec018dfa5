package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// Migrate applies every pending migration for the given driver.  Each
// driver keeps its own migration directory because column types and
// auto-increment syntax differ.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var dialect string
	switch driver {
	case DriverMySQL:
		dialect = "mysql"
	case DriverSQLite:
		dialect = "sqlite3"
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}
	sub, err := fs.Sub(migrationFS, "migrations/"+driver)
	if err != nil {
		return err
	}
	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

package store

import (
	"embed"
	"fmt"
	"path"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// Migration directions accepted by Migrate.
const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// Migrate applies the embedded goose migrations for the store's driver.
// logger may be nil to keep goose quiet.
func Migrate(s *SQL, direction string, logger goose.Logger) error {
	dialect, dir, err := migrationDialect(s.Driver())
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if logger != nil {
		goose.SetLogger(logger)
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	switch direction {
	case MigrateUp:
		err = goose.Up(s.DB(), dir)
	case MigrateDown:
		err = goose.Down(s.DB(), dir)
	case MigrateStatus:
		err = goose.Status(s.DB(), dir)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	return nil
}

func migrationDialect(driver string) (dialect, dir string, err error) {
	switch driver {
	case DriverPostgres:
		return "postgres", path.Join("migrations", "postgres"), nil
	case DriverSQLite:
		return "sqlite3", path.Join("migrations", "sqlite"), nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

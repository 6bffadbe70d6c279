package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// LatestSchemaVersion is the highest migration shipped in migrations/.
const LatestSchemaVersion = 2

var (
	ErrSchemaDowngrade      = errors.New("database schema is newer than the requested version")
	ErrUnknownSchemaVersion = errors.New("unknown schema version")
	ErrDirtySchema          = errors.New("database schema is dirty")
)

// RunMigrations brings the database at dbPath to schema version. Tables and
// indexes are only created when absent, so reopening an existing database at
// the same version is a no-op.
func RunMigrations(dbPath string, version uint) (err error) {
	if version < 1 || version > LatestSchemaVersion {
		return fmt.Errorf("%w: %d (latest is %d)", ErrUnknownSchemaVersion, version, LatestSchemaVersion)
	}

	// separate connection so migration state never leaks into the main pool
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	current, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		current = 0
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case dirty:
		return fmt.Errorf("%w at version %d", ErrDirtySchema, current)
	}

	if current > version {
		return fmt.Errorf("%w: database is at %d, requested %d", ErrSchemaDowngrade, current, version)
	}

	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

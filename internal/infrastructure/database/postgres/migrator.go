package postgres

import (
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // Postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver
	pkgerrors "github.com/saludplena/claims-engine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// RunMigrations — apply all pending migrations
// ─────────────────────────────────────────────────────────────────────────────

// RunMigrations applies all pending schema migrations from migrationsPath.
// It is called on startup so the schema is current before the API accepts
// traffic. Returns nil when there is nothing to apply.
func RunMigrations(dbURL string, migrationsPath string) error {
	m, err := migrate.New(migrationsPath, dbURL)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to create migrate instance")
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			return nil
		}
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to run migrations")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// RollbackMigration — rollback migrations by specified steps
// ─────────────────────────────────────────────────────────────────────────────

// RollbackMigration rolls the schema back by the given number of steps.
// Intended for development and recovery, not routine operation.
func RollbackMigration(dbURL string, migrationsPath string, steps int) error {
	if steps <= 0 {
		return pkgerrors.InvalidParam("steps must be greater than 0")
	}

	m, err := migrate.New(migrationsPath, dbURL)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to create migrate instance")
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil {
		if err == migrate.ErrNoChange {
			return pkgerrors.New(pkgerrors.ErrCodeInternal, "no migrations to roll back")
		}
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to roll back migrations")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// MigrationStatus — query current migration state
// ─────────────────────────────────────────────────────────────────────────────

// MigrationStatus reports the applied migration version and whether the
// schema is dirty. A dirty schema means a previous migration failed part way
// and needs manual intervention before further migrations run.
func MigrationStatus(dbURL string, migrationsPath string) (version uint, dirty bool, err error) {
	m, err := migrate.New(migrationsPath, dbURL)
	if err != nil {
		return 0, false, pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to create migrate instance")
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if err != nil {
		if err == migrate.ErrNilVersion {
			return 0, false, nil
		}
		return 0, false, pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to get migration version")
	}
	return version, dirty, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ForceMigrationVersion — manually set migration version (dangerous)
// ─────────────────────────────────────────────────────────────────────────────

// ForceMigrationVersion stamps the schema at the given version without
// running any migrations. Use only to recover from a dirty state.
func ForceMigrationVersion(dbURL string, migrationsPath string, version int) error {
	m, err := migrate.New(migrationsPath, dbURL)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to create migrate instance")
	}
	defer m.Close()

	if err := m.Force(version); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to force migration version")
	}
	return nil
}

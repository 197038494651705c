// Package migration wraps golang-migrate for the listing database
// schema: applying the SQL files under migrations/ and scaffolding new
// migration pairs.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator drives schema migrations against an open postgres
// connection. "Nothing to do" is treated as success throughout.
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New builds a Migrator reading migration files from migrationsPath.
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}

	return &Migrator{m: m, logger: logger}, nil
}

// Up applies every pending migration.
func (mg *Migrator) Up() error {
	mg.logger.Info("Applying pending migrations")

	changed, err := settle(mg.m.Up())
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if !changed {
		mg.logger.Info("Schema already up to date")
		return nil
	}
	return mg.logVersion("Migrations applied")
}

// Down rolls back every applied migration.
func (mg *Migrator) Down() error {
	mg.logger.Info("Rolling back all migrations")

	changed, err := settle(mg.m.Down())
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	if !changed {
		mg.logger.Info("Nothing to roll back")
		return nil
	}
	mg.logger.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations: positive moves up, negative rolls back.
func (mg *Migrator) Steps(n int) error {
	mg.logger.Info("Stepping migrations", zap.Int("steps", n))

	changed, err := settle(mg.m.Steps(n))
	if err != nil {
		return fmt.Errorf("migrate steps: %w", err)
	}
	if !changed {
		mg.logger.Info("Schema already up to date")
		return nil
	}
	return mg.logVersion("Migration steps applied")
}

// GoTo migrates the schema to an exact version, up or down.
func (mg *Migrator) GoTo(version uint) error {
	mg.logger.Info("Migrating to version", zap.Uint("target_version", version))

	changed, err := settle(mg.m.Migrate(version))
	if err != nil {
		return fmt.Errorf("migrate to version %d: %w", version, err)
	}
	if !changed {
		mg.logger.Info("Already at target version")
		return nil
	}
	mg.logger.Info("Migrated to version", zap.Uint("version", version))
	return nil
}

// Version reports the current schema version. A database with no
// applied migrations reports version 0, clean.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Force stamps the schema version without running any SQL. Only for
// recovering a dirty state after a failed migration.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn("Forcing schema version", zap.Int("version", version))

	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	mg.logger.Info("Schema version forced", zap.Int("version", version))
	return nil
}

// Drop destroys everything in the database, data included.
func (mg *Migrator) Drop() error {
	mg.logger.Warn("Dropping database, all listing data will be lost")

	if err := mg.m.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	mg.logger.Info("Database dropped")
	return nil
}

// Close releases the migration source and database handles.
func (mg *Migrator) Close() error {
	sourceErr, dbErr := mg.m.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}

// settle collapses golang-migrate's ErrNoChange into a "nothing
// happened" result so callers treat it as success.
func settle(err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	return err == nil, err
}

func (mg *Migrator) logVersion(msg string) error {
	version, dirty, err := mg.m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	mg.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for golang-migrate
	"go.uber.org/zap"
)

// MigrationsTable records applied warehouse schema versions. It is kept
// apart from schema_migrations so the warehouse can share a database with
// other migrated applications.
const MigrationsTable = "biometric_advisor_migrations"

// Migrate applies pending migrations from dir (NNN_name.up.sql files) and
// returns the resulting schema version. golang-migrate needs database/sql,
// so it opens its own short-lived connection rather than using the pool.
func Migrate(connStr, dir string, logger *zap.Logger) (uint, error) {
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return 0, fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return 0, describeMigrateError(err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("Warehouse schema is current", zap.Uint("version", version))
	return version, nil
}

// describeMigrateError points operators at the failed version when a
// previous run left the schema dirty.
func describeMigrateError(err error) error {
	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		return fmt.Errorf("warehouse schema is dirty at version %d; repair it and reset %s: %w",
			dirty.Version, MigrationsTable, err)
	}
	return fmt.Errorf("failed to run migrations: %w", err)
}

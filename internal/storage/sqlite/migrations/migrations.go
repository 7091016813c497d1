// Package migrations holds the execgate SQLite schema (instances and kv tables).
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var schema embed.FS

// Apply brings the schema of db to the latest version and returns it.
// A database already at the latest version is not an error.
func Apply(db *sql.DB) (version uint, err error) {
	if db == nil {
		return 0, fmt.Errorf("db is required")
	}

	m, err := load(db)
	if err != nil {
		return 0, err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("could not apply schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("could not get schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}

	return version, nil
}

func load(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schema, "sql")
	if err != nil {
		return nil, fmt.Errorf("could not read embedded schema: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("could not create migration: %w", err)
	}

	return m, nil
}

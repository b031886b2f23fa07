package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationsTable = "history_schema_migrations"

// SchemaStatus describes the snapshot schema after migrating.
type SchemaStatus struct {
	Version uint
	Applied bool
}

// ErrDirtySchema means an earlier migration stopped halfway; the file needs
// manual repair before history can be used.
var ErrDirtySchema = errors.New("history schema is dirty")

// migrationLogger routes golang-migrate output to slog at debug level.
type migrationLogger struct{}

func (migrationLogger) Printf(format string, v ...any) {
	slog.Debug("Migration", "message", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrationLogger) Verbose() bool {
	return false
}

// Migrate brings the snapshot schema up to date. The connection stays open:
// closing the migrate instance would close db as well.
func Migrate(db *DB) (SchemaStatus, error) {
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return SchemaStatus{}, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return SchemaStatus{}, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return SchemaStatus{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrationLogger{}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return SchemaStatus{}, ErrDirtySchema
	}

	status := SchemaStatus{Applied: true}
	if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
		status.Applied = false
	} else if err != nil {
		return SchemaStatus{}, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return SchemaStatus{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	status.Version = version

	return status, nil
}

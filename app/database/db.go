package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection holding snapshot history.
type DB struct {
	*sql.DB
}

// Open connects to the SQLite file at path, creating it if needed, and
// applies pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: conn}

	status, err := Migrate(db)
	if err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("Database ready", "path", path, "schema_version", status.Version, "migrated", status.Applied)

	return db, nil
}

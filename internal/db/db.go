package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle used for analysis run history. Schema is
// managed by the migrations in migrations/, not by Open.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the
// connection pragmas the analysis workload needs. WAL keeps readers
// (report listing, chart rendering) from blocking a run insert.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	// SQLite serializes writers; a single connection avoids
	// SQLITE_BUSY churn under concurrent run inserts.
	handle.SetMaxOpenConns(1)

	return &DB{handle}, nil
}

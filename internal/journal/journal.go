// Package journal records batch runs in SQLite: run metadata, the outcome
// of every iteration, and the seed snapshots that make failed iterations
// reproducible.
//
// The journal is diagnostics tooling for the CLI. The recovery-log
// contract itself returns in-memory accumulators only; nothing in the
// library layer depends on a journal being present.
package journal

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/text/unicode/norm"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a requested run, iteration, or snapshot
// does not exist in the journal.
var ErrNotFound = errors.New("journal: not found")

// Journal stores run records in SQLite. Open with ":memory:" for a
// process-local journal or a file path for one that survives the process
// (used by the replay and trace commands).
type Journal struct {
	db *sql.DB
}

// Open creates or opens a journal database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//   - foreign key enforcement
//
// Open is idempotent - the schema applies with IF NOT EXISTS.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to journal: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY and keeps :memory: journals on one shared database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// NormalizeLabel brings a scenario label to NFC so that visually
// identical labels key the same rows regardless of their source encoding.
// Callers comparing against journaled labels must normalize the same way.
func NormalizeLabel(label string) string {
	return norm.NFC.String(label)
}

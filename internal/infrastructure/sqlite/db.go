package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS run (
	id TEXT PRIMARY KEY,
	repository TEXT NOT NULL,
	archive_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	backup_type TEXT,
	from_archive TEXT,
	dry_run INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT,
	start_time DATETIME NOT NULL,
	end_time DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_repository ON run(repository);
CREATE INDEX IF NOT EXISTS idx_runs_start_time ON run(start_time);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON run(kind);
`

type DB struct {
	*sqlx.DB
}

func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Store times in a sortable, round-trippable layout
	db, err := sqlx.Connect("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// An in-memory database lives per connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL lets a running backup journal while another invocation reads history
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// NullString helper for optional string fields
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

// NullTime helper for optional time fields
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

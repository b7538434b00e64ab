// Package sqlite is a single-file store with the same contract as the
// PostgreSQL store, for deployments without a database server.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that stored dates sort and compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS metrics (
	name       TEXT NOT NULL,
	source     TEXT NOT NULL,
	date       TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (name, source, date)
);
CREATE INDEX IF NOT EXISTS idx_metrics_name_date ON metrics (name, date);

CREATE TABLE IF NOT EXISTS workouts (
	workout_id           TEXT PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT '',
	start_time           TEXT NOT NULL,
	end_time             TEXT NOT NULL,
	duration             REAL NOT NULL DEFAULT 0,
	active_energy_burned TEXT,
	distance             TEXT,
	heart_rate_data      TEXT NOT NULL DEFAULT '[]',
	heart_rate_recovery  TEXT NOT NULL DEFAULT '[]',
	step_count           TEXT,
	temperature          TEXT,
	humidity             TEXT,
	intensity            TEXT,
	updated_at           TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_workouts_start_time ON workouts (start_time);

CREATE TABLE IF NOT EXISTS routes (
	workout_id TEXT PRIMARY KEY REFERENCES workouts (workout_id) ON DELETE CASCADE,
	locations  TEXT NOT NULL CHECK (json_array_length(locations) > 0),
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// Store is a SQLite-backed metric and workout store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; transactions queue for the connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

// text stores a raw document as TEXT, or NULL when it is absent.
func text(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func textArray(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "[]"
	}
	return string(raw)
}

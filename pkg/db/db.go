package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Single connection: also keeps one shared database for ":memory:".
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneSessions removes ended sessions, and their transitions, older than
// the specified duration. It returns the number of sessions removed.
func (d *DB) PruneSessions(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC()
	if _, err := d.Exec(`DELETE FROM transitions WHERE session_id IN (
		SELECT id FROM sessions WHERE ended_at IS NOT NULL AND ended_at < ?)`, deadline); err != nil {
		return 0, err
	}
	res, err := d.Exec("DELETE FROM sessions WHERE ended_at IS NOT NULL AND ended_at < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			geometry TEXT,
			sim_provider TEXT,
			started_at DATETIME,
			ended_at DATETIME,
			last_state TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			from_state TEXT,
			to_state TEXT,
			at DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Migration: Add sim_provider if missing
	var colCount int
	err := d.QueryRow("SELECT count(*) FROM pragma_table_info('sessions') WHERE name='sim_provider'").Scan(&colCount)
	if err == nil && colCount == 0 {
		if _, err := d.Exec("ALTER TABLE sessions ADD COLUMN sim_provider TEXT"); err != nil {
			return fmt.Errorf("failed to add sim_provider column: %w", err)
		}
	}

	return nil
}

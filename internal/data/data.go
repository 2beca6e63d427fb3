package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/torrichelli/subledger/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// Repositories contains all repositories, backed by one SQLite database.
type Repositories struct {
	Ledger    repo.LedgerRepo
	Retention repo.RetentionRepo
	Stats     repo.StatsRepo

	db *sql.DB
}

// NewRepositories opens (and if needed creates) the ledger database and
// returns the repository bundle.
func NewRepositories(dbPath string) (*Repositories, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		Ledger:    &ledgerRepo{db: db},
		Retention: &retentionRepo{db: db},
		Stats:     &statsRepo{db: db},
		db:        db,
	}, nil
}

// Close closes the shared database connection.
func (r *Repositories) Close() error {
	return r.db.Close()
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS subjects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id INTEGER NOT NULL UNIQUE,
			handle TEXT,
			name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS inviters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			handle TEXT,
			invite_token TEXT,
			source_channel TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inviters_token ON inviters(invite_token)`,
		`CREATE TABLE IF NOT EXISTS journal (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TEXT NOT NULL,
			event_type TEXT NOT NULL,
			subject_external_id INTEGER NOT NULL,
			subject_handle TEXT,
			subject_name TEXT,
			inviter_id INTEGER REFERENCES inviters(id),
			status TEXT NOT NULL,
			note TEXT,
			delivery_id INTEGER UNIQUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_subject ON journal(subject_external_id)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_occurred ON journal(occurred_at)`,
		`CREATE TABLE IF NOT EXISTS retention_checks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			journal_id INTEGER NOT NULL REFERENCES journal(id),
			check_date TEXT NOT NULL,
			result TEXT NOT NULL,
			UNIQUE (journal_id, check_date)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// Timestamps are stored as second-precision RFC3339 UTC text: constant
// width, so lexicographic order in SQL matches chronological order and
// sqlite's date() works on the value directly.

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fmtDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// nullStr maps "" to NULL so COALESCE-based merges treat unknown values as
// absent rather than overwriting with empty strings.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/worktime/internal/work"
)

const dateLayout = "2006-01-02"

var (
	ErrNotFound      = errors.New("record not found")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrInvalidDate   = errors.New("invalid date")
)

type Database struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at path.
func New(path string) (*Database, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases and write transactions consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return database, nil
}

func (d *Database) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS daily_records (
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			check_in TEXT,
			check_out TEXT,
			break_in TEXT,
			break_out TEXT,
			meetings TEXT NOT NULL DEFAULT '[]',
			total_hours REAL NOT NULL DEFAULT 0,
			break_minutes INTEGER NOT NULL DEFAULT 0,
			credit_minutes INTEGER NOT NULL DEFAULT 0,
			meeting_minutes INTEGER NOT NULL DEFAULT 0,
			expected_leave TEXT,
			note TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS record_history (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			snapshot TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS holidays (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			kind TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			UNIQUE (user_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_date ON daily_records(date)`,
		`CREATE INDEX IF NOT EXISTS idx_history_record ON record_history(user_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_holidays_user_date ON holidays(user_id, date)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q (want YYYY-MM-DD)", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate is the storage key form of t's calendar date.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func nullClock(t *work.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func parseNullClock(s sql.NullString) (*work.TimeOfDay, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := work.ParseTimeOfDay(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

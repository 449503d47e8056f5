package sqlite

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/rpggio/codepulse/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
	loc *time.Location
}

// New creates a new SQLite database connection. The pool is limited to
// one connection so every reader and writer is serialized, which also
// keeps ":memory:" databases coherent across calls.
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{DB: db, loc: time.Local}, nil
}

// SetLocation sets the time zone used to derive the calendar day of
// stored rows. Defaults to time.Local.
func (db *DB) SetLocation(loc *time.Location) {
	if loc != nil {
		db.loc = loc
	}
}

// Location returns the time zone used for calendar days.
func (db *DB) Location() *time.Location {
	return db.loc
}

// RunMigrations applies the embedded schema. Every statement is
// idempotent so this runs on each start.
func (db *DB) RunMigrations() error {
	names, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", name, err)
		}
	}

	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

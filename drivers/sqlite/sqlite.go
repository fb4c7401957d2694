// Package sqlite provides a SQLite tracking driver for hive.
//
// This driver is ideal for local development, CI and single-host
// deployments where the tracking store lives next to the application.
//
// # Basic Usage
//
//	import (
//	    "database/sql"
//	    _ "github.com/mattn/go-sqlite3"
//	    "github.com/honeynil/hive"
//	    "github.com/honeynil/hive/drivers/sqlite"
//	)
//
//	db, _ := sql.Open("sqlite3", "hive.db")
//	m := hive.New(sqlite.New(db))
//
// # Database File
//
//   - Persistent: "hive.db" or "/path/to/hive.db"
//   - In-memory: ":memory:" (lost when the connection closes; pin the pool
//     to one connection with db.SetMaxOpenConns(1))
//
// # Timestamps
//
// SQLite has no native timestamp type. applied_at and updated_at are
// stored as UTC TEXT in "YYYY-MM-DD HH:MM:SS" form, which sorts correctly
// and is human-readable. Sub-second precision is dropped.
//
// # Compatibility
//
//   - SQLite 3.24+ (INSERT ... ON CONFLICT DO UPDATE)
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/honeynil/hive/drivers/base"
)

// Driver implements the hive.Driver interface for SQLite.
type Driver struct {
	base.Driver
}

// New creates a new SQLite driver.
//
// The database connection should already be open and configured.
// The default tracking table name is "hive_migrations".
//
// For better concurrent read performance, use WAL mode:
//
//	db, err := sql.Open("sqlite3", "hive.db?_journal_mode=WAL")
func New(db *sql.DB) *Driver {
	return NewWithTableName(db, base.DefaultTableName)
}

// NewWithTableName creates a new SQLite driver with a custom table name.
func NewWithTableName(db *sql.DB, tableName string) *Driver {
	return &Driver{
		Driver: base.Driver{
			DB:        db,
			TableName: tableName,
			Config: base.Config{
				Placeholder:     base.PlaceholderQuestion,
				QuoteIdentifier: base.QuoteDoubleQuotes,
				Upsert:          base.UpsertOnConflict,
				ParseTime:       base.ParseTimeISO8601, // SQLite stores timestamps as TEXT
				TimeValue:       base.FormatTimeISO8601,
			},
		},
	}
}

// Init creates the tracking table if it doesn't exist.
//
// This method is idempotent and safe to call multiple times.
func (d *Driver) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'pending',
			applied_at TEXT NULL,
			execution_time_ms INTEGER NOT NULL DEFAULT 0,
			checksum TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		) WITHOUT ROWID
	`, d.Table())

	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tracking table %s: %w", d.TableName, err)
	}
	return nil
}

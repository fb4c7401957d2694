// Package clickhouse provides a ClickHouse tracking driver for hive.
//
// ClickHouse has no row-level upsert. Tracking rows live in a
// ReplacingMergeTree keyed by id with updated_at as the version column:
// every Save inserts a new row and reads use FINAL so that only the newest
// row per id is visible.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/honeynil/hive/drivers/base"
)

// Driver implements the hive.Driver interface for ClickHouse.
type Driver struct {
	base.Driver
}

// New creates a new ClickHouse driver.
//
// The database connection should already be open and configured.
// The default tracking table name is "hive_migrations".
//
// Example:
//
//	db, err := sql.Open("clickhouse", DSN)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	driver := clickhouse.New(db)
func New(db *sql.DB) *Driver {
	return NewWithTableName(db, base.DefaultTableName)
}

// NewWithTableName creates a new ClickHouse driver with a custom table name.
//
// Example:
//
//	driver := clickhouse.NewWithTableName(db, "analytics_migrations")
func NewWithTableName(db *sql.DB, tableName string) *Driver {
	return &Driver{
		Driver: base.Driver{
			DB:        db,
			TableName: tableName,
			Config: base.Config{
				Placeholder:     base.PlaceholderQuestion,
				QuoteIdentifier: base.QuoteDoubleQuotes,
				Upsert:          base.InsertOnly,
				ReadSuffix:      " FINAL",
			},
		},
	}
}

// Init creates the tracking table if it doesn't exist.
//
// The table schema:
//   - id:                String                     - migration id, sort key
//   - status:            LowCardinality(String)     - pending, applied, failed, skipped
//   - applied_at:        Nullable(DateTime64(3))    - when the last attempt finished
//   - execution_time_ms: Int64                      - duration of the last attempt
//   - checksum:          String                     - checksum of the applied content
//   - updated_at:        DateTime64(3)              - version column for deduplication
//
// This method is idempotent and safe to call multiple times.
func (d *Driver) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id                String,
			status            LowCardinality(String)   DEFAULT 'pending',
			applied_at        Nullable(DateTime64(3)),
			execution_time_ms Int64                    DEFAULT 0,
			checksum          String                   DEFAULT '',
			updated_at        DateTime64(3)            DEFAULT now64(3)
		)
		ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY id
	`, d.Table())

	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tracking table %s: %w", d.TableName, err)
	}
	return nil
}

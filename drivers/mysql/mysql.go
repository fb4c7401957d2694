// Package mysql provides a MySQL tracking driver for hive.
//
// This driver supports MySQL 5.7+ and MariaDB 10.2+.
//
// # Basic Usage
//
//	import (
//	    "database/sql"
//	    _ "github.com/go-sql-driver/mysql"
//	    "github.com/honeynil/hive"
//	    "github.com/honeynil/hive/drivers/mysql"
//	)
//
//	db, _ := sql.Open("mysql", "user:password@tcp(localhost:3306)/dbname?parseTime=true")
//	m := hive.New(mysql.New(db))
//
// # Connection String Requirements
//
// The connection string MUST include parseTime=true to properly handle DATETIME columns:
//
//	"user:password@tcp(localhost:3306)/dbname?parseTime=true"
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/honeynil/hive/drivers/base"
)

// Driver implements the hive.Driver interface for MySQL.
type Driver struct {
	base.Driver
}

// New creates a new MySQL driver.
//
// The database connection should already be open and configured.
// The default tracking table name is "hive_migrations".
//
// Example:
//
//	db, err := sql.Open("mysql", "user:pass@tcp(localhost:3306)/db?parseTime=true")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	driver := mysql.New(db)
func New(db *sql.DB) *Driver {
	return NewWithTableName(db, base.DefaultTableName)
}

// NewWithTableName creates a new MySQL driver with a custom table name.
//
// Use this when several independent module trees share one database.
func NewWithTableName(db *sql.DB, tableName string) *Driver {
	return &Driver{
		Driver: base.Driver{
			DB:        db,
			TableName: tableName,
			Config: base.Config{
				Placeholder:     base.PlaceholderQuestion,
				QuoteIdentifier: base.QuoteBackticks,
				Upsert:          base.UpsertOnDuplicateKey,
				// ParseTime is nil because the MySQL driver parses DATETIME
				// itself when parseTime=true is set in the DSN.
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
			id VARCHAR(255) PRIMARY KEY,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			applied_at DATETIME(3) NULL,
			execution_time_ms BIGINT NOT NULL DEFAULT 0,
			checksum VARCHAR(64) NOT NULL DEFAULT '',
			updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`, d.Table())

	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tracking table %s: %w", d.TableName, err)
	}
	return nil
}

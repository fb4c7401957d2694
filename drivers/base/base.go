// Package base provides common functionality for hive SQL tracking drivers.
//
// Every SQL driver stores tracking rows in one table with the same columns:
//
//	id                 migration id, primary key
//	status             pending, applied, failed or skipped
//	applied_at         when the last attempt finished (nullable)
//	execution_time_ms  duration of the last attempt
//	checksum           checksum of the content that was applied
//	updated_at         when the row was last written
//
// Concrete drivers embed Driver, supply dialect strategies through Config
// and implement Init with their own DDL.
package base

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/honeynil/hive"
)

// DefaultTableName is the tracking table used when none is given.
const DefaultTableName = "hive_migrations"

// Columns lists the tracking columns in the order Save binds them.
var Columns = []string{"id", "status", "applied_at", "execution_time_ms", "checksum", "updated_at"}

// Config contains dialect strategies for the base driver.
type Config struct {
	// Placeholder generates SQL placeholders for the n-th argument (1-based).
	// PostgreSQL/YDB: PlaceholderDollar
	// MySQL/SQLite/ClickHouse: PlaceholderQuestion
	// SQL Server: PlaceholderAtP
	Placeholder func(n int) string

	// QuoteIdentifier escapes SQL identifiers (table names).
	QuoteIdentifier func(name string) string

	// Upsert builds the statement Save executes. It receives the quoted
	// table name and one placeholder per entry in Columns.
	Upsert func(table string, placeholders []string) string

	// ParseTime parses applied_at when the dialect stores it as text
	// (optional). When nil, applied_at is scanned as a native timestamp.
	ParseTime func(src interface{}) (time.Time, error)

	// TimeValue converts a timestamp to a query argument (optional).
	// Default: nil for a nil pointer, the time.Time value otherwise.
	TimeValue func(t *time.Time) interface{}

	// ReadSuffix is appended after the table name in Load
	// (e.g., " FINAL" for ClickHouse ReplacingMergeTree).
	ReadSuffix string
}

// Driver provides the shared Load, Save and Close of hive.Driver.
//
// Driver holds no mutable state beyond *sql.DB, which is safe for
// concurrent use, so embedding drivers are safe as well.
type Driver struct {
	DB        *sql.DB
	TableName string
	Config    Config

	now func() time.Time
}

// Table returns the quoted tracking table name.
func (d *Driver) Table() string {
	return d.Config.QuoteIdentifier(d.TableName)
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.DB.Close()
}

// Load returns every tracking row.
func (d *Driver) Load(ctx context.Context) ([]hive.StatusEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s%s
	`, strings.Join(Columns[:5], ", "), d.Table(), d.Config.ReadSuffix)

	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load tracking rows from %s: %w", d.TableName, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []hive.StatusEntry
	for rows.Next() {
		e, err := d.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (d *Driver) scan(rows *sql.Rows) (hive.StatusEntry, error) {
	var (
		e        hive.StatusEntry
		status   string
		checksum sql.NullString
	)

	if d.Config.ParseTime != nil {
		var appliedAt sql.NullString
		if err := rows.Scan(&e.ID, &status, &appliedAt, &e.ExecutionTimeMs, &checksum); err != nil {
			return e, err
		}
		if appliedAt.Valid && appliedAt.String != "" {
			t, err := d.Config.ParseTime(appliedAt.String)
			if err != nil {
				return e, fmt.Errorf("failed to parse applied_at for %s: %w", e.ID, err)
			}
			e.AppliedAt = &t
		}
	} else {
		var appliedAt sql.NullTime
		if err := rows.Scan(&e.ID, &status, &appliedAt, &e.ExecutionTimeMs, &checksum); err != nil {
			return e, err
		}
		if appliedAt.Valid {
			t := appliedAt.Time.UTC()
			e.AppliedAt = &t
		}
	}

	parsed, err := hive.ParseStatus(status)
	if err != nil {
		return e, fmt.Errorf("row %s: %w", e.ID, err)
	}
	e.Status = parsed
	e.Checksum = checksum.String

	return e, nil
}

// Save upserts the row for entry.ID using the Upsert strategy.
func (d *Driver) Save(ctx context.Context, entry hive.StatusEntry) error {
	placeholders := make([]string, len(Columns))
	for i := range placeholders {
		placeholders[i] = d.Config.Placeholder(i + 1)
	}
	query := d.Config.Upsert(d.Table(), placeholders)

	now := d.clock()().UTC()
	_, err := d.DB.ExecContext(ctx, query,
		entry.ID,
		entry.Status.String(),
		d.timeValue(entry.AppliedAt),
		entry.ExecutionTimeMs,
		entry.Checksum,
		d.timeValue(&now),
	)
	if err != nil {
		return fmt.Errorf("save tracking row %s: %w", entry.ID, err)
	}
	return nil
}

// SetClock overrides the time source for updated_at (for testing).
func (d *Driver) SetClock(now func() time.Time) {
	d.now = now
}

func (d *Driver) clock() func() time.Time {
	if d.now == nil {
		return time.Now
	}
	return d.now
}

func (d *Driver) timeValue(t *time.Time) interface{} {
	if d.Config.TimeValue != nil {
		return d.Config.TimeValue(t)
	}
	if t == nil {
		return nil
	}
	return t.UTC()
}

// --- Upsert Strategies ---

// columnList returns the comma-separated column names.
func columnList() string {
	return strings.Join(Columns, ", ")
}

// UpsertOnConflict builds INSERT ... ON CONFLICT (id) DO UPDATE.
// Used by PostgreSQL, CockroachDB and SQLite.
func UpsertOnConflict(table string, placeholders []string) string {
	sets := make([]string, 0, len(Columns)-1)
	for _, c := range Columns[1:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET %s
	`, table, columnList(), strings.Join(placeholders, ", "), strings.Join(sets, ", "))
}

// UpsertOnDuplicateKey builds INSERT ... ON DUPLICATE KEY UPDATE.
// Used by MySQL and MariaDB.
func UpsertOnDuplicateKey(table string, placeholders []string) string {
	sets := make([]string, 0, len(Columns)-1)
	for _, c := range Columns[1:] {
		sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
	}
	return fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON DUPLICATE KEY UPDATE %s
	`, table, columnList(), strings.Join(placeholders, ", "), strings.Join(sets, ", "))
}

// UpsertStatement builds UPSERT INTO. Used by YDB.
func UpsertStatement(table string, placeholders []string) string {
	return fmt.Sprintf(`
		UPSERT INTO %s (%s)
		VALUES (%s)
	`, table, columnList(), strings.Join(placeholders, ", "))
}

// InsertOnly builds a plain INSERT. Used by engines that collapse
// duplicates themselves (ClickHouse ReplacingMergeTree).
func InsertOnly(table string, placeholders []string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
	`, table, columnList(), strings.Join(placeholders, ", "))
}

// --- Placeholder Strategies ---

// PlaceholderDollar creates placeholders in the format $1, $2, $3...
// Used by PostgreSQL, CockroachDB and YDB.
func PlaceholderDollar(n int) string {
	return fmt.Sprintf("$%d", n)
}

// PlaceholderQuestion creates placeholders in the format ?, ?, ?...
// Used by MySQL, SQLite, and ClickHouse.
func PlaceholderQuestion(n int) string {
	return "?"
}

// PlaceholderAtP creates placeholders in the format @p1, @p2, @p3...
// Used by SQL Server.
func PlaceholderAtP(n int) string {
	return fmt.Sprintf("@p%d", n)
}

// --- Identifier Quoting ---

// QuoteDoubleQuotes wraps name in double quotes, doubling embedded quotes.
// Used by PostgreSQL, SQLite, and ClickHouse.
func QuoteDoubleQuotes(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBackticks wraps name in backticks, doubling embedded backticks.
// Used by MySQL and YDB.
func QuoteBackticks(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteBrackets wraps name in brackets, doubling embedded closing brackets.
// Used by SQL Server.
func QuoteBrackets(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// --- Time Strategies ---

// TimeLayout is the text layout used by dialects without a timestamp type.
const TimeLayout = "2006-01-02 15:04:05"

// ParseTimeISO8601 parses time from ISO8601 string format.
// Used by SQLite which stores timestamps as TEXT.
func ParseTimeISO8601(src interface{}) (time.Time, error) {
	str, ok := src.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected string, got %T", src)
	}
	return time.Parse(TimeLayout, str)
}

// FormatTimeISO8601 formats t for text storage, nil for a nil pointer.
// Counterpart of ParseTimeISO8601.
func FormatTimeISO8601(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(TimeLayout)
}

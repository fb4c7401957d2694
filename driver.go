package hive

import "context"

// Driver is the interface tracking stores must implement.
//
// Driver abstracts where migration status rows live. hive ships drivers for
// PostgreSQL (and CockroachDB), MySQL, SQLite, SQL Server, ClickHouse, YDB
// and Redis, plus an in-memory mock for tests.
//
// # Implementing a Driver
//
//  1. Create the tracking table (or equivalent) in Init; it must be idempotent
//  2. Return every stored row from Load
//  3. Upsert by id in Save; last write wins
//
// See drivers/postgres/postgres.go for a reference implementation.
//
// # Thread Safety
//
// Drivers must be safe for concurrent use. hive does not serialise calls:
// several validation passes may run at once, and each Save is an
// independent upsert keyed by migration id.
type Driver interface {
	// Init creates the tracking storage if needed. Safe to call repeatedly.
	Init(ctx context.Context) error

	// Load returns every tracking row. Order is unspecified.
	Load(ctx context.Context) ([]StatusEntry, error)

	// Save inserts or replaces the row for entry.ID.
	Save(ctx context.Context, entry StatusEntry) error

	// Close releases the underlying connection.
	Close() error
}

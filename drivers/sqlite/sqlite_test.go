package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/honeynil/hive"
	"github.com/honeynil/hive/drivers/base"
)

// setupTestDB opens a private in-memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// Every pooled connection would get its own empty :memory: database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDriverCreation(t *testing.T) {
	db := setupTestDB(t)

	if d := New(db); d.TableName != base.DefaultTableName {
		t.Errorf("TableName = %q; want %q", d.TableName, base.DefaultTableName)
	}
	if d := NewWithTableName(db, "tracking"); d.Table() != `"tracking"` {
		t.Errorf("Table() = %q", d.Table())
	}
}

func TestInit(t *testing.T) {
	db := setupTestDB(t)
	driver := New(db)
	ctx := context.Background()

	if err := driver.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'hive_migrations'").Scan(&name)
	if err != nil {
		t.Fatalf("tracking table was not created: %v", err)
	}

	// Init should be idempotent
	if err := driver.Init(ctx); err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	driver := New(db)
	ctx := context.Background()

	if err := driver.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	entries, err := driver.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no rows, got %d", len(entries))
	}

	at := time.Date(2024, 6, 1, 8, 30, 15, 0, time.UTC)
	rows := []hive.StatusEntry{
		{ID: "auth_001", Status: hive.StatusApplied, AppliedAt: &at, ExecutionTimeMs: 10, Checksum: "abc"},
		{ID: "core_001", Status: hive.StatusFailed, AppliedAt: &at, ExecutionTimeMs: 3},
		{ID: "core_002", Status: hive.StatusPending},
	}
	for _, e := range rows {
		if err := driver.Save(ctx, e); err != nil {
			t.Fatalf("Save(%s) failed: %v", e.ID, err)
		}
	}

	entries, err = driver.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(entries))
	}

	byID := map[string]hive.StatusEntry{}
	for _, e := range entries {
		byID[e.ID] = e
	}

	auth := byID["auth_001"]
	if auth.Status != hive.StatusApplied || auth.ExecutionTimeMs != 10 || auth.Checksum != "abc" {
		t.Errorf("auth_001 = %+v", auth)
	}
	if auth.AppliedAt == nil || !auth.AppliedAt.Equal(at) {
		t.Errorf("auth_001 AppliedAt = %v; want %v", auth.AppliedAt, at)
	}
	if byID["core_001"].Status != hive.StatusFailed {
		t.Errorf("core_001 = %+v", byID["core_001"])
	}
	if byID["core_002"].AppliedAt != nil {
		t.Errorf("core_002 AppliedAt = %v; want nil", byID["core_002"].AppliedAt)
	}
}

func TestSaveIsUpsert(t *testing.T) {
	db := setupTestDB(t)
	driver := New(db)
	ctx := context.Background()

	if err := driver.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	first := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	if err := driver.Save(ctx, hive.StatusEntry{ID: "auth_001", Status: hive.StatusFailed, AppliedAt: &first}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := driver.Save(ctx, hive.StatusEntry{ID: "auth_001", Status: hive.StatusApplied, AppliedAt: &second, Checksum: "v2"}); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	entries, err := driver.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", len(entries))
	}
	if entries[0].Status != hive.StatusApplied || entries[0].Checksum != "v2" || !entries[0].AppliedAt.Equal(second) {
		t.Errorf("row = %+v", entries[0])
	}
}

func TestManagerRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	root := t.TempDir()
	hive.WriteModule(t, root, "auth", map[string]string{
		"001_create_users.sql": "CREATE TABLE users (id INTEGER);",
		"002_add_roles.sql":    "-- @depends: auth_001\nALTER TABLE users ADD role TEXT;",
	})

	m := hive.New(New(db))
	if err := m.Tracker().Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	m.Tracker().Record(ctx, hive.Result{ID: "auth_001", Success: true, ExecutionTime: 25 * time.Millisecond})

	summary, err := m.Summary(ctx, root)
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	want := hive.Counts{Total: 2, Applied: 1, Pending: 1}
	if summary.Overall != want {
		t.Errorf("Overall = %+v; want %+v", summary.Overall, want)
	}
}

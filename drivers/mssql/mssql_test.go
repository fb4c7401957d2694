package mssql

import (
	"context"
	"database/sql"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/honeynil/hive"
)

func TestDriverCreation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a mock database connection", err)
	}
	defer db.Close()

	driver := New(db)
	if driver.TableName != "hive_migrations" {
		t.Errorf("driver.TableName = %q; want %q", driver.TableName, "hive_migrations")
	}
	if got := driver.Table(); got != "[hive_migrations]" {
		t.Errorf("Table() = %q; want %q", got, "[hive_migrations]")
	}
}

func TestUpsertMerge(t *testing.T) {
	query := upsertMerge("[t]", []string{"@p1", "@p2", "@p3", "@p4", "@p5", "@p6"})

	for _, want := range []string{
		"MERGE INTO [t] WITH (HOLDLOCK) AS target",
		"USING (SELECT @p1 AS id, @p2 AS status, @p3 AS applied_at, @p4 AS execution_time_ms, @p5 AS checksum, @p6 AS updated_at) AS source",
		"WHEN MATCHED THEN UPDATE SET status = source.status",
		"INSERT (id, status, applied_at, execution_time_ms, checksum, updated_at)",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("upsertMerge() missing %q in:\n%s", want, query)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(query), ";") {
		t.Error("MERGE must be terminated with a semicolon")
	}
}

func TestInit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a mock database connection", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("IF OBJECT_ID(N'it''s', N'U') IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewWithTableName(db, "it's").Init(context.Background()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a mock database connection", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("MERGE INTO [hive_migrations]")).
		WithArgs("billing_002", "applied", sqlmock.AnyArg(), int64(12), "abc", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := hive.StatusEntry{ID: "billing_002", Status: hive.StatusApplied, AppliedAt: &at, ExecutionTimeMs: 12, Checksum: "abc"}
	if err := New(db).Save(context.Background(), entry); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestIntegrationSaveAndLoad(t *testing.T) {
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN not set")
	}

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		t.Skip("SQL Server not available:", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skip("SQL Server not available:", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec("DROP TABLE IF EXISTS hive_migrations")
		_ = db.Close()
	})

	driver := New(db)
	if err := driver.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}

	for _, status := range []hive.Status{hive.StatusFailed, hive.StatusApplied} {
		if err := driver.Save(ctx, hive.StatusEntry{ID: "auth_001", Status: status}); err != nil {
			t.Fatalf("Save(%s) failed: %v", status, err)
		}
	}

	entries, err := driver.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != hive.StatusApplied {
		t.Errorf("Load() = %+v", entries)
	}
}

package hive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// TestHelper provides testing utilities for migration sets.
//
// TestHelper wraps a Manager with helpers that fail the test on errors
// instead of returning them. The driver is initialised on creation and
// closed with t.Cleanup().
//
// # Usage
//
//	func TestMigrations(t *testing.T) {
//	    h := hive.NewTest(t, mock.New())
//	    root := t.TempDir()
//
//	    h.WriteModule(root, "auth", map[string]string{
//	        "001_create_users.sql": "CREATE TABLE users (id INT);",
//	    })
//
//	    h.MustValidate(root)
//	    order := h.MustOrder(root)
//	}
//
// Point MustValidate at the real modules directory to gate CI on a valid
// migration set:
//
//	func TestModulesAreValid(t *testing.T) {
//	    hive.NewTest(t, nil).MustValidate("../../modules")
//	}
type TestHelper struct {
	*Manager
	t   *testing.T
	ctx context.Context
}

// NewTest creates a Manager with automatic cleanup. driver may be nil for
// validation-only tests.
func NewTest(t *testing.T, driver Driver, opts ...Option) *TestHelper {
	t.Helper()

	m := New(driver, opts...)
	ctx := context.Background()

	if driver != nil {
		if err := m.Tracker().Init(ctx); err != nil {
			t.Fatalf("Failed to initialize driver: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = m.Close()
	})

	return &TestHelper{
		Manager: m,
		t:       t,
		ctx:     ctx,
	}
}

// MustValidate is like Validate but fails the test when the report is not
// successful. Every error line is reported.
func (th *TestHelper) MustValidate(root string) *ValidationReport {
	th.t.Helper()
	report := th.Validate(th.ctx, root)
	if !report.Success {
		for _, e := range report.Errors {
			th.t.Errorf("  %s", e)
		}
		th.t.Fatalf("Migration validation failed with %d errors", len(report.Errors))
	}
	return report
}

// MustOrder validates root and returns the application order.
func (th *TestHelper) MustOrder(root string) []string {
	th.t.Helper()
	return th.MustValidate(root).Graph.Order
}

// MustSummary is like Summary but fails the test on error.
func (th *TestHelper) MustSummary(root string) *SummaryReport {
	th.t.Helper()
	report, err := th.Summary(th.ctx, root)
	if err != nil {
		th.t.Fatalf("Failed to summarize migrations: %v", err)
	}
	return report
}

// MustRecord records result and fails the test if it was not stored.
func (th *TestHelper) MustRecord(result Result) {
	th.t.Helper()
	th.Tracker().Record(th.ctx, result)

	entries, err := th.Tracker().Entries(th.ctx)
	if err != nil {
		th.t.Fatalf("Failed to load tracking rows: %v", err)
	}
	for _, e := range entries {
		if e.ID == result.ID && e.Status == result.status() {
			return
		}
	}
	th.t.Fatalf("Result for %q was not recorded", result.ID)
}

// WriteModule writes files (name to content) into
// {root}/{module}/migrations, creating directories as needed.
func (th *TestHelper) WriteModule(root, module string, files map[string]string) {
	th.t.Helper()
	WriteModule(th.t, root, module, files)
}

// WriteModule writes files into {root}/{module}/migrations for tests that do
// not need a TestHelper.
func WriteModule(t testing.TB, root, module string, files map[string]string) {
	t.Helper()

	dir := filepath.Join(root, module, MigrationsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", dir, err)
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
}

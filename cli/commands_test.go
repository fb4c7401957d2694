package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/honeynil/hive"
)

// writeModules lays out a valid three-migration set under root:
// auth_001 <- auth_002 <- billing_001.
func writeModules(t *testing.T, root string) {
	t.Helper()
	hive.WriteModule(t, root, "auth", map[string]string{
		"001_create_users.sql":    "-- @description: users table\nCREATE TABLE users (id INT);\n",
		"002_add_email_index.sql": "-- @depends: auth_001\nCREATE INDEX users_email ON users (email);\n",
	})
	hive.WriteModule(t, root, "billing", map[string]string{
		"001_create_invoices.sql": "-- @depends: auth_002\nCREATE TABLE invoices (id INT, user_id INT);\n",
	})
}

// sqliteApp returns an app whose DBOpener records the database/sql driver
// name it was asked for.
func sqliteApp(t *testing.T, opened *string) *App {
	t.Helper()
	return newApp(func(driverName, dsn string) (*sql.DB, error) {
		if opened != nil {
			*opened = driverName
		}
		return sql.Open(driverName, dsn)
	})
}

func TestValidateCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)

	output, err := execute(t, newApp(nil), "--dir", root, "--verbose", "validate")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, output)
	}

	if !strings.Contains(output, "✓ All 3 migrations are valid") {
		t.Errorf("output missing success line:\n%s", output)
	}
	for _, line := range []string{"1. auth_001", "2. auth_002", "3. billing_001"} {
		if !strings.Contains(output, line) {
			t.Errorf("verbose output missing %q:\n%s", line, output)
		}
	}
}

func TestValidateCommandCycle(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	hive.WriteModule(t, root, "a", map[string]string{
		"001_one.sql": "-- @depends: b_001\nSELECT 1;\n",
	})
	hive.WriteModule(t, root, "b", map[string]string{
		"001_two.sql": "-- @depends: a_001\nSELECT 2;\n",
	})

	output, err := execute(t, newApp(nil), "--dir", root, "validate")
	if !errors.Is(err, errValidationFailed) {
		t.Fatalf("err = %v, want errValidationFailed", err)
	}
	if !strings.Contains(output, "✗ dependency cycle detected") {
		t.Errorf("output missing cycle error:\n%s", output)
	}
	if !strings.Contains(output, "Validation failed with 1 error(s)") {
		t.Errorf("output missing failure summary:\n%s", output)
	}
}

func TestValidateCommandJSON(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)

	output, err := execute(t, newApp(nil), "--dir", root, "--json", "validate")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, output)
	}

	var report struct {
		Success bool     `json:"success"`
		Errors  []string `json:"errors"`
		Graph   struct {
			Order []string `json:"order"`
		} `json:"graph"`
	}
	if err := json.Unmarshal([]byte(output), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}

	if !report.Success {
		t.Errorf("success = false, errors = %v", report.Errors)
	}
	want := []string{"auth_001", "auth_002", "billing_001"}
	if strings.Join(report.Graph.Order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", report.Graph.Order, want)
	}
}

func TestValidateCommandMetricsFile(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)
	path := filepath.Join(t.TempDir(), "hive.prom")

	if _, err := execute(t, newApp(nil), "--dir", root, "--metrics-file", path, "validate"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), "hive_validation_success 1") {
		t.Errorf("metrics file missing validation_success:\n%s", data)
	}
}

func TestValidateCommandUnknownLogFormat(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)

	_, err := execute(t, newApp(nil), "--dir", root, "--log-format", "xml", "validate")
	if err == nil || !strings.Contains(err.Error(), "unknown log format") {
		t.Errorf("err = %v, want unknown log format", err)
	}
}

func TestPlanCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)

	output, err := execute(t, newApp(nil), "--dir", root, "plan")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, output)
	}

	first := strings.Index(output, "auth_001")
	second := strings.Index(output, "auth_002")
	third := strings.Index(output, "billing_001")
	if first < 0 || second < first || third < second {
		t.Errorf("plan not in dependency order:\n%s", output)
	}
	if !strings.Contains(output, "3 migration(s) in plan") {
		t.Errorf("output missing total:\n%s", output)
	}
}

func TestPlanCommandJSONLimit(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)

	output, err := execute(t, newApp(nil), "--dir", root, "--json", "plan", "--limit", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, output)
	}

	var plan struct {
		Plan []struct {
			Position int    `json:"position"`
			ID       string `json:"id"`
			Status   string `json:"status"`
		} `json:"plan"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(output), &plan); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}

	if plan.Total != 2 || len(plan.Plan) != 2 {
		t.Fatalf("total = %d, entries = %d, want 2", plan.Total, len(plan.Plan))
	}
	if plan.Plan[1].ID != "auth_002" || plan.Plan[1].Position != 2 {
		t.Errorf("second entry = %+v, want auth_002 at position 2", plan.Plan[1])
	}
	if plan.Plan[0].Status != "pending" {
		t.Errorf("status = %q, want pending without a driver", plan.Plan[0].Status)
	}
}

func TestFilterPlan(t *testing.T) {
	plan := []hive.PlanEntry{
		{Position: 1, ID: "auth_001", Status: hive.StatusApplied},
		{Position: 2, ID: "auth_002", Status: hive.StatusFailed},
		{Position: 3, ID: "billing_001", Status: hive.StatusPending},
		{Position: 4, ID: "core_001", Status: hive.StatusSkipped},
	}

	tests := []struct {
		name    string
		pending bool
		limit   int
		want    []string
	}{
		{"all", false, 0, []string{"auth_001", "auth_002", "billing_001", "core_001"}},
		{"limit", false, 2, []string{"auth_001", "auth_002"}},
		{"pending only", true, 0, []string{"auth_002", "billing_001", "core_001"}},
		{"pending with limit", true, 1, []string{"auth_002"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterPlan(plan, tt.pending, tt.limit)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("filterPlan() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestExplainCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)

	output, err := execute(t, newApp(nil), "--dir", root, "explain", "billing_001", "--sql")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, output)
	}

	checks := []string{
		"Migration: billing_001",
		"Module:        billing",
		"Position:      3",
		"Status:        pending",
		"Depends on:    auth_002",
		"Requires:      auth_002, auth_001",
		"Required by:   (none)",
		"CREATE TABLE invoices",
	}
	for _, check := range checks {
		if !strings.Contains(output, check) {
			t.Errorf("output missing %q:\n%s", check, output)
		}
	}
}

func TestExplainCommandNotFound(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)

	_, err := execute(t, newApp(nil), "--dir", root, "explain", "auth_009")
	if !errors.Is(err, hive.ErrMigrationNotFound) {
		t.Errorf("err = %v, want ErrMigrationNotFound", err)
	}
}

func TestStatusCommandRequiresDriver(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)

	_, err := execute(t, newApp(nil), "--dir", root, "status")
	if err == nil || !strings.Contains(err.Error(), "driver is required") {
		t.Errorf("err = %v, want driver is required", err)
	}
}

func TestRecordCommandRequiresDSN(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, newApp(nil), "--driver", "sqlite", "record", "auth_001", "--result", "applied")
	if err == nil || !strings.Contains(err.Error(), "dsn is required") {
		t.Errorf("err = %v, want dsn is required", err)
	}
}

func TestTrackingLifecycle(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)
	dsn := filepath.Join(t.TempDir(), "hive.db")

	global := []string{"--dir", root, "--driver", "sqlite", "--dsn", dsn}
	run := func(t *testing.T, args ...string) string {
		t.Helper()
		var opened string
		output, err := execute(t, sqliteApp(t, &opened), append(global, args...)...)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v\n%s", args, err, output)
		}
		if opened != "sqlite3" {
			t.Fatalf("opener called with %q, want sqlite3", opened)
		}
		return output
	}

	if out := run(t, "init"); !strings.Contains(out, "✓ Tracking storage ready: hive_migrations (sqlite)") {
		t.Errorf("init output:\n%s", out)
	}

	if out := run(t, "record", "auth_001", "--result", "applied", "--duration", "150ms"); !strings.Contains(out, "✓ Recorded auth_001 as applied") {
		t.Errorf("record output:\n%s", out)
	}
	run(t, "record", "auth_002", "--result", "failed", "--error", "index already exists")
	run(t, "record", "legacy_001", "--result", "skipped")

	t.Run("status", func(t *testing.T) {
		out := run(t, "--json", "status")

		var status struct {
			Migrations []struct {
				ID       string `json:"id"`
				Drifted  bool   `json:"drifted"`
				Orphaned bool   `json:"orphaned"`
				Tracking struct {
					Status          string `json:"status"`
					ExecutionTimeMs int64  `json:"execution_time_ms"`
					Checksum        string `json:"checksum"`
				} `json:"tracking"`
			} `json:"migrations"`
			Summary hive.SummaryReport `json:"summary"`
		}
		if err := json.Unmarshal([]byte(out), &status); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out)
		}

		if len(status.Migrations) != 4 {
			t.Fatalf("got %d rows, want 3 migrations and 1 orphan:\n%s", len(status.Migrations), out)
		}

		auth := status.Migrations[0]
		if auth.ID != "auth_001" || auth.Tracking.Status != "applied" {
			t.Errorf("first row = %+v, want auth_001 applied", auth)
		}
		if auth.Tracking.ExecutionTimeMs != 150 {
			t.Errorf("execution_time_ms = %d, want 150", auth.Tracking.ExecutionTimeMs)
		}
		if auth.Tracking.Checksum == "" || auth.Drifted {
			t.Errorf("checksum = %q, drifted = %v; want file checksum and no drift", auth.Tracking.Checksum, auth.Drifted)
		}

		orphan := status.Migrations[3]
		if orphan.ID != "legacy_001" || !orphan.Orphaned {
			t.Errorf("last row = %+v, want orphaned legacy_001", orphan)
		}

		overall := status.Summary.Overall
		if overall.Total != 3 || overall.Applied != 1 || overall.Failed != 1 || overall.Pending != 1 {
			t.Errorf("overall = %+v, want 3 total, 1 applied, 1 failed, 1 pending", overall)
		}
	})

	t.Run("status table", func(t *testing.T) {
		out := run(t, "status")
		if !strings.Contains(out, "1 failed (⚠️  WARNING)") {
			t.Errorf("summary missing failed warning:\n%s", out)
		}
		if !strings.Contains(out, "1 orphaned") {
			t.Errorf("summary missing orphan count:\n%s", out)
		}
	})

	t.Run("plan pending", func(t *testing.T) {
		out := run(t, "--json", "plan", "--pending")
		if strings.Contains(out, `"auth_001"`) {
			t.Errorf("applied migration listed as pending:\n%s", out)
		}
		if !strings.Contains(out, `"auth_002"`) || !strings.Contains(out, `"billing_001"`) {
			t.Errorf("pending migrations missing:\n%s", out)
		}
	})
}

func TestValidateCommandDrift(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeModules(t, root)
	dsn := filepath.Join(t.TempDir(), "hive.db")
	global := []string{"--dir", root, "--driver", "sqlite", "--dsn", dsn}

	for _, args := range [][]string{
		{"init"},
		{"record", "auth_001", "--result", "applied", "--checksum", "deadbeef"},
	} {
		if out, err := execute(t, sqliteApp(t, nil), append(global, args...)...); err != nil {
			t.Fatalf("%v: unexpected error: %v\n%s", args, err, out)
		}
	}

	out, err := execute(t, sqliteApp(t, nil), append(global, "validate")...)
	if err != nil {
		t.Fatalf("drift should warn by default: %v\n%s", err, out)
	}
	if !strings.Contains(out, "⚠️  checksum drift: auth_001") {
		t.Errorf("output missing drift warning:\n%s", out)
	}

	out, err = execute(t, sqliteApp(t, nil), append(global, "--drift", "error", "validate")...)
	if !errors.Is(err, errValidationFailed) {
		t.Fatalf("err = %v, want errValidationFailed with --drift error", err)
	}
	if !strings.Contains(out, "✗ checksum drift: auth_001") {
		t.Errorf("output missing drift error:\n%s", out)
	}
}

func TestRecordCommandConfirmation(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	writeModules(t, DefaultDir)

	configYAML := `staging:
  driver: sqlite
  dsn: staging.db
  require_confirmation: true
production:
  driver: sqlite
  dsn: production.db
  require_confirmation: true
  require_explicit_unlock: true
`
	if err := os.WriteFile(ConfigFileName, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		input   string
		wantErr string
	}{
		{"staging declined", []string{"--env", "staging", "init"}, "no\n", "operation cancelled"},
		{"staging accepted", []string{"--env", "staging", "init"}, "yes\n", ""},
		{"staging with --yes", []string{"--env", "staging", "--yes", "init"}, "", ""},
		{"production locked", []string{"--env", "production", "init"}, "production\n", "requires --unlock-production"},
		{"production wrong word", []string{"--env", "production", "--unlock-production", "init"}, "yes\n", "operation cancelled"},
		{"production confirmed", []string{"--env", "production", "--unlock-production", "init"}, "production\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := sqliteApp(t, nil)
			app.in = strings.NewReader(tt.input)

			out, err := execute(t, app, append([]string{"--use-config"}, tt.args...)...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v\n%s", err, out)
			}
			if !strings.Contains(out, "✓ Tracking storage ready") {
				t.Errorf("output:\n%s", out)
			}
		})
	}
}

func TestBuildResult(t *testing.T) {
	tests := []struct {
		name      string
		outcome   string
		appliedAt string
		wantErr   bool
		want      hive.Status
	}{
		{"applied", ResultApplied, "", false, hive.StatusApplied},
		{"failed", ResultFailed, "", false, hive.StatusFailed},
		{"skipped", ResultSkipped, "2026-01-02T03:04:05Z", false, hive.StatusSkipped},
		{"unknown outcome", "done", "", true, hive.StatusPending},
		{"bad timestamp", ResultApplied, "yesterday", true, hive.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := buildResult("auth_001", tt.outcome, 0, "", "", tt.appliedAt)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := expectedStatus(tt.outcome); got != tt.want {
				t.Errorf("expectedStatus(%q) = %q, want %q", tt.outcome, got, tt.want)
			}
			if result.Success != (tt.want == hive.StatusApplied) {
				t.Errorf("Success = %v for %s", result.Success, tt.outcome)
			}
			if result.Skipped != (tt.want == hive.StatusSkipped) {
				t.Errorf("Skipped = %v for %s", result.Skipped, tt.outcome)
			}
			if tt.appliedAt != "" && result.AppliedAt.IsZero() {
				t.Error("AppliedAt not parsed")
			}
		})
	}

	if _, err := buildResult("auth_001", ResultApplied, -1, "", "", ""); err == nil {
		t.Error("expected error for negative duration")
	}
}

func TestVerifyRecorded(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)
	truncated := now.Add(400 * time.Millisecond).Truncate(time.Second)

	result := hive.Result{
		ID:            "auth_001",
		Success:       true,
		ExecutionTime: 150 * time.Millisecond,
		Checksum:      "abc123",
		AppliedAt:     now.Add(400 * time.Millisecond),
	}
	row := func(at *time.Time, sum string, status hive.Status) []hive.StatusEntry {
		return []hive.StatusEntry{
			{ID: "auth_000", Status: hive.StatusApplied},
			{ID: "auth_001", Status: status, AppliedAt: at, ExecutionTimeMs: 150, Checksum: sum},
		}
	}

	tests := []struct {
		name    string
		entries []hive.StatusEntry
		wantErr bool
	}{
		{"matching row", row(&truncated, "abc123", hive.StatusApplied), false},
		{"no row", row(nil, "", hive.StatusApplied)[:1], true},
		{"row from an earlier attempt", row(&earlier, "abc123", hive.StatusApplied), true},
		{"different checksum", row(&truncated, "old999", hive.StatusApplied), true},
		{"different status", row(&truncated, "abc123", hive.StatusFailed), true},
		{"missing timestamp", row(nil, "abc123", hive.StatusApplied), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyRecorded(tt.entries, result, hive.StatusApplied)
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"", LogFormatText, LogFormatJSON, LogFormatLogrus, LogFormatZap} {
		t.Run("format "+format, func(t *testing.T) {
			var buf strings.Builder
			logger, err := newLogger(format, false, &buf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			logger.InfoContext(t.Context(), "hidden without verbose")
			logger.WarnContext(t.Context(), "dropping migration result", "id", "auth_001")

			out := buf.String()
			if strings.Contains(out, "hidden without verbose") {
				t.Errorf("info line logged without --verbose:\n%s", out)
			}
			if !strings.Contains(out, "dropping migration result") || !strings.Contains(out, "auth_001") {
				t.Errorf("warning not logged:\n%s", out)
			}
		})
	}

	var buf strings.Builder
	logger, err := newLogger(LogFormatJSON, true, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.InfoContext(t.Context(), "migration result recorded")
	if !strings.Contains(buf.String(), `"msg":"migration result recorded"`) {
		t.Errorf("verbose json logger output:\n%s", buf.String())
	}

	if _, err := newLogger("xml", false, &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/honeynil/hive"
	"github.com/honeynil/hive/metrics"
)

// statusRow is one line of status output.
type statusRow struct {
	ID       string           `json:"id"`
	Module   string           `json:"module,omitempty"`
	Filename string           `json:"filename,omitempty"`
	Entry    hive.StatusEntry `json:"tracking"`
	Drifted  bool             `json:"drifted,omitempty"`
	Orphaned bool             `json:"orphaned,omitempty"`
}

func (app *App) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long: `Show the tracked status of every migration under the modules directory.

Tracking rows whose migration file no longer exists are listed as orphaned.
Failed migrations are reported as warnings; they do not fail the command.

Output format:
  - Table format (default): human-readable table
  - JSON format (--json): machine-readable JSON output

Examples:
  # Show status in table format
  hive status --driver postgres --dsn postgres://localhost/app

  # Show status in JSON format
  hive status --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := app.setupManager(ctx, true)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			summary, err := m.Summary(ctx, app.config.Dir)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			rows, err := app.statusRows(cmd, m)
			if err != nil {
				return err
			}

			if err := app.writeMetrics(func(c *metrics.Collector) { c.ObserveSummary(summary) }); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if app.config.JSON {
				return writeJSON(out, struct {
					Migrations []statusRow          `json:"migrations"`
					Summary    *hive.SummaryReport `json:"summary"`
				}{rows, summary})
			}
			return outputStatusTable(out, rows, summary)
		},
	}
}

// statusRows joins discovered records with stored rows, appending rows
// that have no file.
func (app *App) statusRows(cmd *cobra.Command, m *hive.Manager) ([]statusRow, error) {
	ctx := cmd.Context()

	records, err := m.Discover(ctx, app.config.Dir)
	if err != nil {
		return nil, err
	}
	entries, err := m.Tracker().Status(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}
	stored, err := m.Tracker().Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}

	known := make(map[string]bool, len(records))
	rows := make([]statusRow, 0, len(records))
	for i, r := range records {
		known[r.ID] = true
		e := entries[i]
		rows = append(rows, statusRow{
			ID:       r.ID,
			Module:   r.Module,
			Filename: r.Filename,
			Entry:    e,
			Drifted:  hive.Drifted(r, e),
		})
	}
	for _, e := range stored {
		if !known[e.ID] {
			rows = append(rows, statusRow{ID: e.ID, Entry: e, Orphaned: true})
		}
	}
	return rows, nil
}

func outputStatusTable(out io.Writer, rows []statusRow, summary *hive.SummaryReport) error {
	table := tablewriter.NewWriter(out)
	table.Header([]string{"ID", "Module", "Status", "Applied At", "Duration", "Checksum"})

	var orphaned int
	for _, row := range rows {
		appliedAt := "-"
		if row.Entry.AppliedAt != nil {
			appliedAt = row.Entry.AppliedAt.Format("2006-01-02 15:04:05")
		}

		duration := "-"
		if row.Entry.Status != hive.StatusPending {
			duration = strconv.FormatInt(row.Entry.ExecutionTimeMs, 10) + "ms"
		}

		status := row.Entry.Status.String()
		switch {
		case row.Orphaned:
			orphaned++
			status += " (orphaned)"
		case row.Drifted:
			status += " (drifted)"
		}

		checksum := row.Entry.Checksum
		if len(checksum) > 12 {
			checksum = checksum[:12] + "..."
		}

		if err := table.Append([]string{row.ID, row.Module, status, appliedAt, duration, checksum}); err != nil {
			return err
		}
	}

	if err := table.Render(); err != nil {
		return err
	}

	o := summary.Overall
	fmt.Fprintf(out, "\nSummary: %d total, %d applied, %d pending, %d skipped", o.Total, o.Applied, o.Pending, o.Skipped)
	if o.Failed > 0 {
		fmt.Fprintf(out, ", %d failed (⚠️  WARNING)", o.Failed)
	}
	if o.Drifted > 0 {
		fmt.Fprintf(out, ", %d drifted (⚠️  WARNING)", o.Drifted)
	}
	if orphaned > 0 {
		fmt.Fprintf(out, ", %d orphaned", orphaned)
	}
	fmt.Fprintln(out)
	return nil
}

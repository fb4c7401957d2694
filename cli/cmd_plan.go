package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/honeynil/hive"
)

func (app *App) planCmd() *cobra.Command {
	var pendingOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the application order",
		Long: `Show every migration in dependency order with its tracked status.

The order is deterministic: a migration always follows its dependencies,
and otherwise migrations are ordered by module, sequence and id.
Without a driver every migration is shown as pending.

Output format:
  - Table format (default): human-readable table
  - JSON format (--json): machine-readable JSON output for CI/CD

Examples:
  # Show the full order
  hive plan

  # Show what deployment tooling still has to apply
  hive plan --pending --driver postgres --dsn $DSN

  # Show the next 3 pending migrations
  hive plan --pending --limit 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := app.setupManager(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			plan, err := m.Plan(ctx, app.config.Dir)
			if err != nil {
				return fmt.Errorf("failed to generate migration plan: %w", err)
			}

			plan = filterPlan(plan, pendingOnly, limit)

			out := cmd.OutOrStdout()
			if app.config.JSON {
				return writeJSON(out, struct {
					Plan  []hive.PlanEntry `json:"plan"`
					Total int              `json:"total"`
				}{plan, len(plan)})
			}
			return outputPlanTable(out, plan, pendingOnly)
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only show migrations that are not applied")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit number of migrations to show (0 = all)")

	return cmd
}

// filterPlan keeps positions from the full order so gaps stay visible.
func filterPlan(plan []hive.PlanEntry, pendingOnly bool, limit int) []hive.PlanEntry {
	out := make([]hive.PlanEntry, 0, len(plan))
	for _, p := range plan {
		if pendingOnly && p.Status == hive.StatusApplied {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func outputPlanTable(out io.Writer, plan []hive.PlanEntry, pendingOnly bool) error {
	fmt.Fprintln(out, "Migration Plan")
	fmt.Fprintln(out, strings.Repeat("━", 60))

	if len(plan) == 0 {
		if pendingOnly {
			fmt.Fprintln(out, "No pending migrations")
		} else {
			fmt.Fprintln(out, "No migrations found")
		}
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header([]string{"#", "ID", "Module", "Depends On", "Status"})

	var drifted, failed int
	for _, p := range plan {
		deps := "-"
		if len(p.Dependencies) > 0 {
			deps = strings.Join(p.Dependencies, ", ")
		}

		status := p.Status.String()
		if p.Drifted {
			drifted++
			status = "⚠️  " + status + " (drifted)"
		}
		if p.Status == hive.StatusFailed {
			failed++
		}

		row := []string{fmt.Sprintf("%d", p.Position), "→ " + p.ID, p.Module, deps, status}
		if err := table.Append(row); err != nil {
			return err
		}
	}

	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d migration(s) in plan\n", len(plan))
	if failed > 0 {
		fmt.Fprintf(out, "⚠️  %d migration(s) failed on their last attempt\n", failed)
	}
	if drifted > 0 {
		fmt.Fprintf(out, "⚠️  %d migration(s) changed since they were applied\n", drifted)
	}
	return nil
}

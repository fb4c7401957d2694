package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/honeynil/hive"
)

func (app *App) explainCmd() *cobra.Command {
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "explain <id>",
		Short: "Explain a specific migration",
		Long: `Show detailed information about one migration.

This command shows:
  - Module, file and description
  - Direct and transitive dependencies
  - Migrations that depend on it
  - Its position in the application order
  - Tracked status and drift (when a driver is set)

Examples:
  # Explain auth_002
  hive explain auth_002

  # Include the SQL
  hive explain auth_002 --sql

  # JSON output
  hive explain auth_002 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := app.setupManager(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			ex, err := m.Explain(ctx, app.config.Dir, args[0])
			if err != nil {
				return fmt.Errorf("failed to explain migration: %w", err)
			}

			out := cmd.OutOrStdout()
			if app.config.JSON {
				return writeJSON(out, ex)
			}

			outputExplain(out, ex, showSQL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSQL, "sql", false, "Print the migration content")

	return cmd
}

func outputExplain(out io.Writer, ex *hive.Explanation, showSQL bool) {
	r := ex.Record

	fmt.Fprintf(out, "Migration: %s\n", r.ID)
	fmt.Fprintln(out, strings.Repeat("━", 60))
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Module:        %s\n", r.Module)
	fmt.Fprintf(out, "File:          %s\n", r.Filename)
	fmt.Fprintf(out, "Description:   %s\n", r.Description)
	fmt.Fprintf(out, "Checksum:      %s\n", r.Checksum)
	if ex.Position > 0 {
		fmt.Fprintf(out, "Position:      %d\n", ex.Position)
	} else {
		fmt.Fprintf(out, "Position:      - (migration set has errors, run 'hive validate')\n")
	}
	fmt.Fprintf(out, "Status:        %s\n", ex.Status.Status)
	if ex.Status.AppliedAt != nil {
		fmt.Fprintf(out, "Applied At:    %s (%dms)\n", ex.Status.AppliedAt.Format("2006-01-02 15:04:05"), ex.Status.ExecutionTimeMs)
	}
	if ex.Drifted {
		fmt.Fprintf(out, "Drift:         ⚠️  file changed since it was applied (stored %s)\n", ex.Status.Checksum)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Depends on:    %s\n", listOrNone(ex.Dependencies))
	fmt.Fprintf(out, "Requires:      %s\n", listOrNone(ex.Requires))
	fmt.Fprintf(out, "Required by:   %s\n", listOrNone(ex.Dependents))

	if showSQL {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Repeat("-", 60))
		fmt.Fprintln(out, strings.TrimRight(string(r.Content), "\n"))
		fmt.Fprintln(out, strings.Repeat("-", 60))
	}
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}

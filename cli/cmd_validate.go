package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/honeynil/hive"
	"github.com/honeynil/hive/metrics"
)

func (app *App) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate migrations",
		Long: `Validate every migration under the modules directory.

This command checks for:
  - Unparseable files and invalid module names
  - Duplicate migration ids
  - Dependencies on migrations that do not exist
  - Gaps and duplicates in per-module sequence numbers
  - Dependency cycles
  - Filename prefixes that break the naming convention (.hive.yaml)
  - Applied migrations whose file changed since (when a driver is set)

The command exits with an error if any problem is found, so it can gate CI.

Examples:
  # Validate all migrations
  hive validate

  # Validate and fail on drift against production
  hive validate --driver postgres --dsn $PROD_DSN --drift error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := app.setupManager(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			report := m.Validate(ctx, app.config.Dir)

			if err := app.writeMetrics(func(c *metrics.Collector) { c.ObserveValidation(report) }); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if app.config.JSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				app.outputValidation(out, report)
			}

			if !report.Success {
				return errValidationFailed
			}
			return nil
		},
	}
}

func (app *App) outputValidation(out io.Writer, report *hive.ValidationReport) {
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "⚠️  %s\n", w)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "✗ %s\n", e)
	}

	if !report.Success {
		fmt.Fprintf(out, "\nValidation failed with %d error(s)\n", len(report.Errors))
		return
	}

	fmt.Fprintf(out, "✓ All %d migrations are valid\n", len(report.Migrations))
	if app.config.Verbose && report.Graph != nil {
		for i, id := range report.Graph.Order {
			fmt.Fprintf(out, "  %d. %s\n", i+1, id)
		}
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

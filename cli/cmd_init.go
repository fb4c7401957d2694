package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (app *App) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the tracking table",
		Long: `Create the tracking table (or equivalent) in the configured store.

This command is idempotent and safe to run on every deploy.

Examples:
  # Create hive_migrations in PostgreSQL
  hive init --driver postgres --dsn postgres://localhost/app

  # Use a custom table name
  hive init --driver mysql --dsn "$DSN" --table billing_migrations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := app.setupManager(ctx, true)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			out := cmd.OutOrStdout()
			if err := app.checkConfirmation(out, "initialize tracking storage"); err != nil {
				return err
			}

			if err := m.Tracker().Init(ctx); err != nil {
				return err
			}

			fmt.Fprintf(out, "✓ Tracking storage ready: %s (%s)\n", app.tableName(), app.config.Driver)
			return nil
		},
	}
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/honeynil/hive"
)

func (app *App) createCmd() *cobra.Command {
	var depends []string
	var description string

	cmd := &cobra.Command{
		Use:   "create <module> <name>",
		Short: "Create a new migration",
		Long: `Create a new migration file in a module.

The command will:
  1. Scan <dir>/<module>/migrations to find the next sequence number
  2. Create <dir>/<module>/migrations/<seq>_<name>.sql
  3. Write the @depends and @description header

The prefix follows the naming section of .hive.yaml when present
(sequential-padded with 3 digits otherwise).

Examples:
  # Create the first auth migration
  hive create auth create_users

  # Create a billing migration that needs auth_001
  hive create billing add_invoices --depends auth_001

  # Several dependencies and a description
  hive create core add_settings --depends auth_001,billing_002 --description "per-tenant settings"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, name := args[0], args[1]

			if !hive.IsValidMigrationName(module) {
				return fmt.Errorf("invalid module name: must contain only lowercase letters, numbers, and underscores")
			}
			if !hive.IsValidMigrationName(name) {
				return fmt.Errorf("invalid migration name: must contain only lowercase letters, numbers, and underscores")
			}
			for _, dep := range depends {
				if !hive.IsValidMigrationName(dep) {
					return fmt.Errorf("invalid dependency %q: must be a migration id such as auth_001", dep)
				}
			}

			// Load config file to get naming pattern
			app.loadEnv()
			if err := app.loadConfigFile(); err != nil && !errors.Is(err, errConfigNotFound) {
				return fmt.Errorf("failed to load config: %w", err)
			}

			records, err := hive.New(nil).Discover(cmd.Context(), app.config.Dir)
			if err != nil {
				return err
			}

			known := make(map[string]bool, len(records))
			for _, r := range records {
				known[r.ID] = true
			}
			for _, dep := range depends {
				if !known[dep] {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  dependency %s does not exist yet\n", dep)
				}
			}

			seq := hive.NextSequence(records, module)
			filename := app.config.Naming.MigrationFilename(seq, name)
			id := module + "_" + app.config.Naming.Prefix(seq)

			dir := filepath.Join(app.config.Dir, module, hive.MigrationsDir)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create migrations directory: %w", err)
			}

			if description == "" {
				description = strings.ReplaceAll(name, "_", " ")
			}

			path := filepath.Join(dir, filename)
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if err != nil {
				return fmt.Errorf("failed to create migration file: %w", err)
			}
			if _, err := f.WriteString(generateSQLTemplate(description, depends)); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to write migration file: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write migration file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created migration file: %s\n", path)
			fmt.Fprintf(out, "  ID: %s\n\n", id)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintf(out, "1. Edit %s and add your SQL\n", path)
			fmt.Fprintln(out, "2. Run 'hive validate' to check the dependency graph")

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&depends, "depends", nil, "Migration ids this migration depends on (comma-separated)")
	cmd.Flags().StringVar(&description, "description", "", "Human-readable description (defaults to the name)")

	return cmd
}

// generateSQLTemplate generates the header and body of a new migration.
func generateSQLTemplate(description string, depends []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "-- @description: %s\n", description)
	if len(depends) > 0 {
		fmt.Fprintf(&b, "-- @depends: %s\n", strings.Join(depends, ", "))
	}
	b.WriteString("\n-- Write your migration here\n")
	b.WriteString("-- Example: CREATE TABLE users (id INT PRIMARY KEY, email VARCHAR(255));\n")

	return b.String()
}

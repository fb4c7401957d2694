// Package cli provides the hive command-line interface.
//
// The CLI validates and reports on a modules directory and records results
// reported by deployment tooling. It never executes migrations.
//
// Example usage:
//
//	// cmd/hive/main.go
//	package main
//
//	import (
//	    _ "github.com/jackc/pgx/v5/stdlib"
//	    "github.com/honeynil/hive/cli"
//	)
//
//	func main() {
//	    cli.Run()
//	}
//
// The CLI supports configuration through flags, environment variables,
// a dotenv file and an optional .hive.yaml config file.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/honeynil/hive"
	"github.com/honeynil/hive/metrics"
)

// DBOpener opens a database connection for a database/sql driver name
// and DSN.
type DBOpener func(driverName, dsn string) (*sql.DB, error)

// errValidationFailed is returned by validate when the report has errors.
// The report itself has already been printed.
var errValidationFailed = errors.New("validation failed")

// App holds the CLI application state.
type App struct {
	dbOpener DBOpener
	config   *Config
	rootCmd  *cobra.Command
	in       io.Reader
}

// Run starts the CLI. This is the main entry point.
//
// Configuration priority:
//  1. Command-line flags (highest)
//  2. Environment variables (including --env-file)
//  3. Config file .hive.yaml (lowest, requires --use-config)
func Run() {
	RunWithDB(nil)
}

// RunWithDB starts the CLI with a custom database opener.
// If dbOpener is nil, sql.Open is used with the driver's registered name.
func RunWithDB(dbOpener DBOpener) {
	app := newApp(dbOpener)

	if err := app.rootCmd.Execute(); err != nil {
		if !errors.Is(err, errValidationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newApp(dbOpener DBOpener) *App {
	app := &App{
		dbOpener: dbOpener,
		config:   &Config{},
		in:       os.Stdin,
	}

	app.rootCmd = &cobra.Command{
		Use:   "hive",
		Short: "Hive migration dependency CLI",
		Long: `Hive - migration dependency resolution for modular Go services.

Hive discovers modules/<module>/migrations/*.sql, checks the dependency
graph declared with "-- @depends:" headers and reports tracked status.
It never runs migrations.

Configuration priority:
  1. Command-line flags (highest)
  2. Environment variables (HIVE_DRIVER, HIVE_DSN, HIVE_TABLE, HIVE_DIR)
  3. Config file .hive.yaml (lowest, requires --use-config)

Examples:
  # Gate CI on a valid migration set
  hive validate

  # Show the application order
  hive plan

  # Show tracked status
  hive status --driver postgres --dsn postgres://localhost/app

  # Create a new migration in the billing module
  hive create billing add_invoices --depends auth_001`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.loadEnvFile()
		},
	}

	app.addGlobalFlags()
	app.addCommands()
	return app
}

// addGlobalFlags adds flags that are available to all commands.
func (app *App) addGlobalFlags() {
	flags := app.rootCmd.PersistentFlags()

	flags.StringVar(&app.config.Driver, "driver", "", "Tracking store (postgres, cockroachdb, mysql, sqlite, sqlserver, clickhouse, ydb, redis)")
	flags.StringVar(&app.config.DSN, "dsn", "", "Tracking store connection string")
	flags.StringVar(&app.config.Table, "table", DefaultTableName, "Tracking table name (hash key for redis)")
	flags.StringVar(&app.config.Dir, "dir", DefaultDir, "Modules root directory")
	flags.StringVar(&app.config.Drift, "drift", "", "Checksum drift policy: ignore, warn or error (default warn)")
	flags.BoolVar(&app.config.UseConfig, "use-config", false, "Enable config file (.hive.yaml)")
	flags.StringVar(&app.config.Env, "env", "", "Environment from config file (development, staging, production)")
	flags.StringVar(&app.config.EnvFile, "env-file", "", "Load environment variables from a dotenv file")
	flags.BoolVar(&app.config.UnlockProduction, "unlock-production", false, "Unlock production environment")
	flags.BoolVar(&app.config.Yes, "yes", false, "Automatic yes to prompts (for CI/CD)")
	flags.BoolVar(&app.config.JSON, "json", false, "Output in JSON format")
	flags.BoolVar(&app.config.Verbose, "verbose", false, "Verbose output")
	flags.StringVar(&app.config.LogFormat, "log-format", "text", "Log format: text, json, logrus or zap")
	flags.StringVar(&app.config.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the command")
}

// addCommands registers all CLI commands.
func (app *App) addCommands() {
	app.rootCmd.AddCommand(
		app.validateCmd(),
		app.statusCmd(),
		app.planCmd(),
		app.explainCmd(),
		app.createCmd(),
		app.initCmd(),
		app.recordCmd(),
		app.versionCmd(),
	)
}

func (app *App) loadEnvFile() error {
	if app.config.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(app.config.EnvFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", app.config.EnvFile, err)
	}
	return nil
}

// setupManager creates a Manager with the current configuration. When
// requireDriver is false and no driver is configured, the Manager runs
// without a tracking store.
func (app *App) setupManager(ctx context.Context, requireDriver bool) (*hive.Manager, error) {
	if err := app.loadConfig(); err != nil {
		return nil, err
	}

	opts, err := app.managerOptions()
	if err != nil {
		return nil, err
	}

	if app.config.Driver == "" {
		if requireDriver {
			return nil, fmt.Errorf("driver is required (use --driver or HIVE_DRIVER)")
		}
		return hive.New(nil, opts...), nil
	}
	if app.config.DSN == "" {
		return nil, fmt.Errorf("dsn is required (use --dsn or HIVE_DSN)")
	}

	driver, err := app.openDriver(ctx)
	if err != nil {
		return nil, err
	}

	return hive.New(driver, opts...), nil
}

func (app *App) managerOptions() ([]hive.Option, error) {
	policy, err := hive.ParseDriftPolicy(app.config.Drift)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(app.config.LogFormat, app.config.Verbose, os.Stderr)
	if err != nil {
		return nil, err
	}

	return []hive.Option{
		hive.WithLogger(logger),
		hive.WithDriftPolicy(policy),
		hive.WithNaming(app.config.Naming),
	}, nil
}

// writeMetrics exports observed reports when --metrics-file is set.
func (app *App) writeMetrics(observe func(c *metrics.Collector)) error {
	if app.config.MetricsFile == "" {
		return nil
	}
	c := metrics.New("")
	observe(c)
	return c.WriteTextfile(app.config.MetricsFile)
}

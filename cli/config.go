package cli

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/honeynil/hive"
	"github.com/honeynil/hive/drivers/base"
)

const (
	// DefaultTableName is the default tracking table.
	DefaultTableName = base.DefaultTableName

	// DefaultDir is the default modules root.
	DefaultDir = "modules"

	// ConfigFileName is the config file read with --use-config.
	ConfigFileName = ".hive.yaml"
)

var errConfigNotFound = errors.New("config file not found: " + ConfigFileName + " (use --use-config only when config file exists)")

// Config holds all configuration options for the CLI.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
	Dir    string `yaml:"dir"`
	Drift  string `yaml:"drift"`

	Naming *hive.NamingConfig `yaml:"-"`

	UseConfig        bool   `yaml:"-"`
	Env              string `yaml:"-"`
	EnvFile          string `yaml:"-"`
	UnlockProduction bool   `yaml:"-"`
	Yes              bool   `yaml:"-"`
	JSON             bool   `yaml:"-"`
	Verbose          bool   `yaml:"-"`
	LogFormat        string `yaml:"-"`
	MetricsFile      string `yaml:"-"`

	configFile *ConfigFile
}

// ConfigFile represents the structure of .hive.yaml.
//
//	config_locked: false
//	naming:
//	  pattern: sequential-padded
//	  padding: 3
//	  enforce: true
//	production:
//	  driver: postgres
//	  dsn: postgres://prod/app
//	  require_confirmation: true
//	  require_explicit_unlock: true
type ConfigFile struct {
	ConfigLocked bool                    `yaml:"config_locked"`
	Naming       *hive.NamingConfig      `yaml:"naming"`
	Environments map[string]*Environment `yaml:",inline"`
}

// Environment represents a single environment configuration.
type Environment struct {
	Driver                string `yaml:"driver"`
	DSN                   string `yaml:"dsn"`
	Table                 string `yaml:"table"`
	Dir                   string `yaml:"dir"`
	Drift                 string `yaml:"drift"`
	RequireConfirmation   bool   `yaml:"require_confirmation"`
	RequireExplicitUnlock bool   `yaml:"require_explicit_unlock"`
}

// loadConfig loads configuration from all sources.
// Priority: flags > env > config file.
func (app *App) loadConfig() error {
	app.loadEnv()
	if app.config.UseConfig {
		if err := app.loadConfigFile(); err != nil {
			return err
		}
	}
	return nil
}

func (app *App) loadEnv() {
	if app.config.Driver == "" {
		app.config.Driver = os.Getenv("HIVE_DRIVER")
	}
	if app.config.DSN == "" {
		app.config.DSN = os.Getenv("HIVE_DSN")
	}
	if app.config.Table == "" || app.config.Table == DefaultTableName {
		if table := os.Getenv("HIVE_TABLE"); table != "" {
			app.config.Table = table
		}
	}
	if app.config.Dir == "" || app.config.Dir == DefaultDir {
		if dir := os.Getenv("HIVE_DIR"); dir != "" {
			app.config.Dir = dir
		}
	}
}

func (app *App) loadConfigFile() error {
	data, err := os.ReadFile(ConfigFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errConfigNotFound
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cf ConfigFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	app.config.configFile = &cf

	if cf.ConfigLocked {
		return fmt.Errorf("config file is locked for safety. Remove 'config_locked: true' or use flags/ENV vars instead")
	}

	if app.config.Naming == nil {
		app.config.Naming = cf.Naming
	}

	if app.config.Env != "" {
		env, ok := cf.Environments[app.config.Env]
		if !ok || env == nil {
			return fmt.Errorf("environment '%s' not found in config file", app.config.Env)
		}

		if env.RequireExplicitUnlock && !app.config.UnlockProduction {
			return fmt.Errorf("environment '%s' requires --unlock-production flag", app.config.Env)
		}

		if app.config.Driver == "" {
			app.config.Driver = env.Driver
		}
		if app.config.DSN == "" {
			app.config.DSN = env.DSN
		}
		if (app.config.Table == "" || app.config.Table == DefaultTableName) && env.Table != "" {
			app.config.Table = env.Table
		}
		if (app.config.Dir == "" || app.config.Dir == DefaultDir) && env.Dir != "" {
			app.config.Dir = env.Dir
		}
		if app.config.Drift == "" {
			app.config.Drift = env.Drift
		}

		app.config.configFile.Environments = map[string]*Environment{
			app.config.Env: env,
		}
	}

	return nil
}

func (app *App) requiresConfirmation() bool {
	if app.config.Yes {
		return false
	}

	if app.config.configFile == nil || app.config.Env == "" {
		return false
	}

	env, ok := app.config.configFile.Environments[app.config.Env]
	if !ok {
		return false
	}

	return env.RequireConfirmation
}

func (app *App) getEnvironmentName() string {
	if app.config.Env != "" {
		return app.config.Env
	}
	return "custom"
}

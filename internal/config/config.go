package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/cegidsync/cegidsync/internal/importer"
	"github.com/cegidsync/cegidsync/internal/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CEGIDSYNC_"

// DefaultFile is the config file name used when none is given.
const DefaultFile = "cegidsync.yaml"

// Config represents the top-level cegidsync.yaml configuration.
type Config struct {
	Database  DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	BatchSize int            `yaml:"batch_size" env:"BATCH_SIZE"`
	Stage     StageConfig    `yaml:"stage" envPrefix:"STAGE_"`
	RunLog    string         `yaml:"run_log,omitempty" env:"RUN_LOG"`
	Log       LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Tenants   []Tenant       `yaml:"tenants"`
}

// DatabaseConfig selects the destination database.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // "pgx" or "sqlite"
	DSN    string `yaml:"dsn" env:"DSN"`
}

// StageConfig is the command that fetches exports before each run.
type StageConfig struct {
	Command string        `yaml:"command,omitempty" env:"COMMAND"`
	Timeout time.Duration `yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // "text" or "json"
}

// Tenant maps a company to the directory its CSV exports land in. An empty
// path disables the tenant.
type Tenant struct {
	Name    string `yaml:"name"`
	CSVPath string `yaml:"csv_path"`
}

// LoadEnv loads the given dotenv files that exist, without overriding
// variables already set. It returns how many files were loaded.
func LoadEnv(files []string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads a cegidsync.yaml file, applies .env files found next to it and
// CEGIDSYNC_* environment overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	dir := filepath.Dir(path)
	if _, err := LoadEnv([]string{filepath.Join(dir, ".env"), filepath.Join(dir, ".env.local")}); err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config for a new deployment: a local SQLite database and
// one tenant per name, each reading from <root>/<name>.
func Default(root string, tenants ...string) *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			DSN:    filepath.Join(root, "cegidsync.db"),
		},
		BatchSize: importer.DefaultBatchSize,
		RunLog:    filepath.Join(root, "logs", "runs.csv"),
		Log:       LogConfig{Level: "info", Format: "text"},
	}
	for _, name := range tenants {
		cfg.Tenants = append(cfg.Tenants, Tenant{Name: name, CSVPath: filepath.Join(root, name)})
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = store.DriverSQLite
	}
	if c.BatchSize == 0 {
		c.BatchSize = importer.DefaultBatchSize
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case store.DriverPostgres, store.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", store.DriverPostgres, store.DriverSQLite, c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.Stage.Timeout < 0 {
		errs = append(errs, fmt.Errorf("stage.timeout must not be negative, got %s", c.Stage.Timeout))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be 'text' or 'json', got '%s'", c.Log.Format))
	}

	seen := make(map[string]bool, len(c.Tenants))
	for i, t := range c.Tenants {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("tenants[%d]: name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("tenants[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
	}
	return errors.Join(errs...)
}

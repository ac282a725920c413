package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/transport/sqldb"
)

const (
	envConfig   = "SQLCURSOR_CONFIG"
	envDriver   = "SQLCURSOR_DRIVER"
	envDSN      = "SQLCURSOR_DSN"
	envDialect  = "SQLCURSOR_DIALECT"
	envLogLevel = "SQLCURSOR_LOG_LEVEL"
)

// Config is the CLI configuration file.
//
//	driver: sqlite
//	dsn: ./world.db
//	dialect: sqlite
//	log_level: info
//	location: America/New_York
//	connect_timeout: 5s
//	batch_size: 500
//	slow_threshold: 1s
type Config struct {
	Driver         string        `yaml:"driver"`
	DSN            string        `yaml:"dsn"`
	Dialect        string        `yaml:"dialect"`
	LogLevel       string        `yaml:"log_level"`
	Location       string        `yaml:"location"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	BatchSize      int           `yaml:"batch_size"`
	SlowThreshold  time.Duration `yaml:"slow_threshold"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	def := sqldb.DefaultOptions()
	return Config{
		Driver:         def.Driver,
		DSN:            def.DSN,
		Dialect:        string(def.Dialect),
		LogLevel:       "info",
		Location:       "UTC",
		ConnectTimeout: def.ConnectTimeout,
		BatchSize:      500,
		SlowThreshold:  time.Second,
	}
}

// LoadConfig reads path over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SQLCURSOR_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(envDriver); v != "" {
		c.Driver = v
	}
	if v := getenv(envDSN); v != "" {
		c.DSN = v
	}
	if v := getenv(envDialect); v != "" {
		c.Dialect = v
	}
	if v := getenv(envLogLevel); v != "" {
		c.LogLevel = v
	}
}

// ApplyFlags overrides fields whose flag was set on the command line.
func (c *Config) ApplyFlags(flags Config, changed func(name string) bool) {
	if changed("driver") {
		c.Driver = flags.Driver
	}
	if changed("dsn") {
		c.DSN = flags.DSN
	}
	if changed("dialect") {
		c.Dialect = flags.Dialect
	}
	if changed("log-level") {
		c.LogLevel = flags.LogLevel
	}
	if changed("location") {
		c.Location = flags.Location
	}
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Driver == "" {
		errs = append(errs, errors.New("driver is required"))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("dsn is required"))
	}
	if _, err := sqldb.ParseDialect(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	if _, err := time.LoadLocation(c.Location); err != nil {
		errs = append(errs, fmt.Errorf("invalid location %q: %w", c.Location, err))
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch_size must not be negative, got %d", c.BatchSize))
	}
	if c.SlowThreshold < 0 {
		errs = append(errs, fmt.Errorf("slow_threshold must not be negative, got %s", c.SlowThreshold))
	}
	return errors.Join(errs...)
}

// TransportOptions converts the configuration into sqldb options.
func (c Config) TransportOptions(logger client.Logger) (sqldb.Options, error) {
	dialect, err := sqldb.ParseDialect(c.Dialect)
	if err != nil {
		return sqldb.Options{}, err
	}
	loc, err := c.location()
	if err != nil {
		return sqldb.Options{}, err
	}
	return sqldb.Options{
		Driver:         c.Driver,
		DSN:            c.DSN,
		Dialect:        dialect,
		ConnectTimeout: c.ConnectTimeout,
		Location:       loc,
		Logger:         logger,
	}, nil
}

func (c Config) location() (*time.Location, error) {
	if c.Location == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Location)
}

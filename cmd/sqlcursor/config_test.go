package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/transport/sqldb"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlcursor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, ":memory:", cfg.DSN)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
driver: sqlite
dsn: ./world.db
dialect: mysql
log_level: debug
location: America/New_York
connect_timeout: 3s
batch_size: 50
slow_threshold: 250ms
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./world.db", cfg.DSN)
	assert.Equal(t, "mysql", cfg.Dialect)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "America/New_York", cfg.Location)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowThreshold)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "dsn: game.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "game.db", cfg.DSN)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.SlowThreshold)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "dsn: [unterminated\n"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestConfig_Precedence(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "dsn: file.db\nlog_level: warn\ndialect: sqlite\n"))
	require.NoError(t, err)

	env := map[string]string{
		envDSN:      "env.db",
		envLogLevel: "debug",
	}
	cfg.ApplyEnv(func(key string) string { return env[key] })
	assert.Equal(t, "env.db", cfg.DSN)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.Dialect, "unset variables keep the file value")

	flags := Config{DSN: "flag.db", LogLevel: "error"}
	cfg.ApplyFlags(flags, func(name string) bool { return name == "dsn" })
	assert.Equal(t, "flag.db", cfg.DSN)
	assert.Equal(t, "debug", cfg.LogLevel, "unchanged flags do not override")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = ""
	cfg.Dialect = "oracle"
	cfg.Location = "Not/AZone"
	cfg.BatchSize = -1
	cfg.SlowThreshold = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "driver is required")
	assert.ErrorContains(t, err, "unknown dialect")
	assert.ErrorContains(t, err, "invalid location")
	assert.ErrorContains(t, err, "batch_size")
	assert.ErrorContains(t, err, "slow_threshold")
}

func TestConfig_TransportOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dialect = "mysql"
	cfg.Location = "UTC"

	opts, err := cfg.TransportOptions(client.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, sqldb.DialectMySQL, opts.Dialect)
	assert.Equal(t, time.UTC, opts.Location)
	assert.Equal(t, cfg.ConnectTimeout, opts.ConnectTimeout)
}

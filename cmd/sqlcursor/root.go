package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/transport/sqldb"
)

// app carries the resolved configuration shared by every subcommand.
type app struct {
	configPath string
	flags      Config
	cfg        Config
	logger     client.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "sqlcursor",
		Short: "Query and bulk-load SQL databases",
		Long: `sqlcursor runs queries through the cursor client and loads CSV files
with batched multi-row INSERT statements.

Configuration is read from a YAML file (--config or SQLCURSOR_CONFIG),
then overridden by SQLCURSOR_DRIVER, SQLCURSOR_DSN, SQLCURSOR_DIALECT and
SQLCURSOR_LOG_LEVEL, then by flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to YAML config file")
	pf.StringVar(&a.flags.Driver, "driver", "", "database/sql driver name (default sqlite)")
	pf.StringVar(&a.flags.DSN, "dsn", "", "Data source name")
	pf.StringVar(&a.flags.Dialect, "dialect", "", "SQL dialect (mysql, sqlite)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.Location, "location", "", "Time zone timestamps are read in (default UTC)")

	cmd.AddCommand(newQueryCmd(a))
	cmd.AddCommand(newLoadCmd(a))
	cmd.AddCommand(newTablesCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup resolves configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = os.Getenv(envConfig)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyFlags(a.flags, cmd.Flags().Changed)

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	return nil
}

// newLogger writes human-readable zerolog output to w.
func newLogger(w io.Writer, level string) client.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !colorsEnabled}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return client.NewZerologLogger(zl)
}

// open connects using the resolved configuration.
func (a *app) open(ctx context.Context) (*sqldb.Transport, error) {
	opts, err := a.cfg.TransportOptions(a.logger)
	if err != nil {
		return nil, err
	}
	tr, err := sqldb.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return tr, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",

		// No configuration is needed to print the version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },

		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("sqlcursor %s\n", client.Version)
		},
	}
}

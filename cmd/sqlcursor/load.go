package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
)

// loadOptions controls how CSV records become batch entries.
type loadOptions struct {
	BatchSize int
	Ignore    bool
	NullToken string
	Columns   []string
	Delimiter rune
	Logger    client.Logger
	Hooks     *client.HookChain
}

func newLoadCmd(a *app) *cobra.Command {
	var (
		batchSize   int
		ignore      bool
		nullToken   string
		columns     []string
		compression string
		delimiter   string
	)

	cmd := &cobra.Command{
		Use:   "load <table> <file>",
		Short: "Insert CSV rows into a table in batches",
		Long: `Load reads a CSV file and inserts its records with multi-row INSERT
statements of up to --batch-size rows each. The first record names the
columns unless --columns is given. Files ending in .gz, .zst or .xz are
decompressed; use "-" to read standard input.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, path := args[0], args[1]

			c, err := parseCompression(compression, path)
			if err != nil {
				return err
			}
			if len([]rune(delimiter)) != 1 {
				return fmt.Errorf("delimiter must be a single character, got %q", delimiter)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			in, closeInput, err := openInput(path, c)
			if err != nil {
				return err
			}
			defer closeInput()

			tr, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer tr.Close()

			opts := loadOptions{
				BatchSize: a.cfg.BatchSize,
				Ignore:    ignore,
				NullToken: nullToken,
				Columns:   columns,
				Delimiter: []rune(delimiter)[0],
				Logger:    a.logger,
				Hooks:     client.NewHookChain(client.NewLoggingHook(a.logger, false, true).WithSlowThreshold(a.cfg.SlowThreshold)),
			}
			if cmd.Flags().Changed("batch-size") {
				opts.BatchSize = batchSize
			}

			res, err := loadCSV(ctx, tr, table, in, opts)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("loaded %d of %d rows into %s in %d statements",
				res.RowsSent, res.Entries, table, res.Flushes))
			return nil
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 500, "Rows per INSERT statement (0 sends one statement at the end)")
	cmd.Flags().BoolVar(&ignore, "ignore", false, "Use INSERT IGNORE (MySQL)")
	cmd.Flags().StringVar(&nullToken, "null", `\N`, "Cell text loaded as NULL (empty to disable)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Column names; the file then has no header record")
	cmd.Flags().StringVar(&compression, "compression", "auto", "Input compression (auto, none, gzip, zstd, xz)")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "Field delimiter")

	return cmd
}

func parseCompression(name, path string) (Compression, error) {
	switch strings.ToLower(name) {
	case "auto", "":
		return DetectCompression(path), nil
	case "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGZ, nil
	case "zstd", "zst":
		return CompressionZSTD, nil
	case "xz":
		return CompressionXZ, nil
	default:
		return CompressionNone, fmt.Errorf("unsupported compression %q, must be one of: auto, none, gzip, zstd, xz", name)
	}
}

// loadCSV inserts every record of r into table through a BatchInsertStatement.
// A failed flush does not stop the load; the rejected rows are reported in the
// result and as an error once the input is exhausted.
func loadCSV(ctx context.Context, conn client.Connection, table string, r io.Reader, opts loadOptions) (client.BatchResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = client.NewNoopLogger()
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	columns := opts.Columns
	if len(columns) > 0 {
		cr.FieldsPerRecord = len(columns)
	} else {
		header, err := cr.Read()
		if err == io.EOF {
			return client.BatchResult{}, errors.New("input is empty")
		}
		if err != nil {
			return client.BatchResult{}, fmt.Errorf("failed to read header: %w", err)
		}
		columns = make([]string, len(header))
		for i, name := range header {
			columns[i] = strings.TrimSpace(name)
		}
	}

	batchOpts := []client.BatchOption{client.WithBatchLogger(logger)}
	if opts.Ignore {
		batchOpts = append(batchOpts, client.WithInsertIgnore())
	}
	if opts.Hooks != nil {
		batchOpts = append(batchOpts, client.WithBatchHooks(opts.Hooks))
	}

	stmt := client.NewBatchInsertStatement(conn, table, opts.BatchSize, batchOpts...)
	for _, name := range columns {
		if err := stmt.AddField(name); err != nil {
			return client.BatchResult{}, err
		}
	}
	if err := stmt.Start(); err != nil {
		return client.BatchResult{}, err
	}

	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res, _ := stmt.Finish(ctx)
			return res, fmt.Errorf("failed to read record %d: %w", line, err)
		}

		if err := addRecord(stmt, record, opts.NullToken); err != nil {
			if stmt.State() == client.IN_ENTRY {
				stmt.EndEntry(ctx)
			}
			res, _ := stmt.Finish(ctx)
			return res, fmt.Errorf("record %d: %w", line, err)
		}
		if err := stmt.EndEntry(ctx); err != nil {
			var qerr *client.QueryError
			if !errors.As(err, &qerr) {
				res, _ := stmt.Finish(ctx)
				return res, fmt.Errorf("record %d: %w", line, err)
			}
			logger.Warn("batch rejected, continuing", client.Int("record", line), client.Error("error", err))
		}
	}

	res, err := stmt.Finish(ctx)
	if err != nil {
		logger.Warn("final batch rejected", client.Error("error", err))
	}
	if res.RowsFailed > 0 {
		return res, fmt.Errorf("%d of %d rows were rejected: %w", res.RowsFailed, res.Entries, stmt.LastFlushError())
	}
	return res, nil
}

// addRecord opens an entry and writes one value per cell.
func addRecord(stmt *client.BatchInsertStatement, record []string, nullToken string) error {
	if err := stmt.BeginEntry(); err != nil {
		return err
	}
	for _, cell := range record {
		var err error
		if nullToken != "" && cell == nullToken {
			err = stmt.PutNull()
		} else {
			err = stmt.PutString(cell)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

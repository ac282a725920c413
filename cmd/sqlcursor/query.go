package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
)

const nullCell = "NULL"

type queryFlags struct {
	exec    bool
	reverse bool
	limit   int
	format  string
}

func newQueryCmd(a *app) *cobra.Command {
	var f queryFlags

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a query and print its rows",
		Example: `  sqlcursor query --dsn world.db "SELECT name, level FROM players"
  sqlcursor query --exec "DELETE FROM players WHERE level < 2"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch f.format {
			case "table", "csv":
			default:
				return fmt.Errorf("unsupported format %q, must be one of: table, csv", f.format)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			tr, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer tr.Close()

			text := strings.Join(args, " ")
			opts, err := a.queryOptions()
			if err != nil {
				return err
			}

			if f.exec {
				n, err := client.Exec(ctx, tr, text, opts...)
				if err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), fmt.Sprintf("%d rows affected", n))
				return nil
			}

			q, err := client.Execute(ctx, tr, text, opts...)
			if err != nil {
				return err
			}
			defer q.Close()

			return writeQuery(cmd.OutOrStdout(), q, f)
		},
	}

	cmd.Flags().BoolVar(&f.exec, "exec", false, "Run as a statement and report affected rows")
	cmd.Flags().BoolVar(&f.reverse, "reverse", false, "Print rows last to first")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Print at most this many rows (0 for all)")
	cmd.Flags().StringVarP(&f.format, "format", "o", "table", "Output format (table, csv)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "csv"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// queryOptions builds the per-query options from the resolved configuration.
func (a *app) queryOptions() ([]client.QueryOption, error) {
	loc, err := a.cfg.location()
	if err != nil {
		return nil, err
	}
	hooks := client.NewHookChain(client.NewLoggingHook(a.logger, true, true).WithSlowThreshold(a.cfg.SlowThreshold))
	return []client.QueryOption{
		client.WithLogger(a.logger),
		client.WithHooks(hooks),
		client.WithLocation(loc),
	}, nil
}

// collectRows drains q into text cells. NULL values become nullCell.
func collectRows(q *client.Query, reverse bool, limit int) ([][]string, error) {
	if reverse {
		q.ReverseRows()
	}

	var rows [][]string
	for q.HasNextRow() {
		if limit > 0 && len(rows) >= limit {
			break
		}
		row, err := q.GetRow()
		if err != nil {
			return nil, err
		}
		cells := make([]string, row.Len())
		for i := range cells {
			v, err := row.NullString(i)
			if err != nil {
				return nil, err
			}
			if v.Valid {
				cells[i] = v.V
			} else {
				cells[i] = nullCell
			}
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func writeQuery(w io.Writer, q *client.Query, f queryFlags) error {
	rows, err := collectRows(q, f.reverse, f.limit)
	if err != nil {
		return err
	}

	if f.format == "csv" {
		cw := csv.NewWriter(w)
		if err := cw.Write(q.Fields()); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	}

	printTable(w, q.Fields(), rows)
	fmt.Fprintf(w, "%s\n", colorDim(fmt.Sprintf("(%d of %d rows)", len(rows), q.NumRows())))
	return nil
}

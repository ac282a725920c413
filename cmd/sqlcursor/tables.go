package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
)

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			tr, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer tr.Close()

			tables, err := client.TableList(ctx, tr)
			if err != nil {
				return fmt.Errorf("failed to list tables: %w", err)
			}
			if len(tables) == 0 {
				printWarning(cmd.OutOrStdout(), "no tables")
				return nil
			}
			for _, name := range tables {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

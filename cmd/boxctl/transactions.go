package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/boxtrace/internal/backend"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "transactions",
		Short: "List recorded transfers that have a map position",
		Long: `The transactions command fetches the transfers recorded for the configured
employee and prints those carrying GPS coordinates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransactions(cmd.Context())
		},
	})
}

func runTransactions(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	txs, err := rt.client.ListTransactions(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		if txs == nil {
			txs = []backend.Transaction{}
		}
		return printJSON(txs)
	}
	for _, tx := range txs {
		fmt.Printf("%s -> %s  %.6f,%.6f  %s\n", tx.Source, tx.Dest, tx.GPS.Latitude, tx.GPS.Longitude, tx.TimeStamp)
	}
	printInfo("%d transaction(s) with a position\n", len(txs))
	return nil
}

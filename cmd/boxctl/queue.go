package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/boxtrace/transfer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and flush the offline transfer queue",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List transfers waiting to be submitted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQueueList(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "drain",
			Short: "Submit queued transfers now, oldest first",
			Long: `The drain command submits queued transfers in order and stops at the first
failure, leaving that transfer and everything after it queued.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQueueDrain(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every queued transfer without submitting it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQueueClear(cmd.Context())
			},
		},
	)
	rootCmd.AddCommand(cmd)
}

func runQueueList(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	pending := rt.queue.Pending()
	if jsonOut {
		if pending == nil {
			pending = []transfer.Record{}
		}
		return printJSON(pending)
	}
	if len(pending) == 0 {
		printInfo("Queue is empty\n")
		return nil
	}
	for i, rec := range pending {
		fmt.Printf("%3d  %s\n", i+1, describeRecord(rec))
	}
	printInfo("%d transfer(s) queued\n", len(pending))
	return nil
}

func runQueueDrain(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.queue.Drain(ctx, rt.client.Submit)
	if jsonOut {
		if perr := printJSON(res); perr != nil {
			return perr
		}
	} else {
		printInfo("Submitted %d, %d remaining\n", res.Submitted, res.Remaining)
	}
	return err
}

func runQueueClear(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	n := rt.queue.Len()
	if err := rt.queue.Clear(ctx); err != nil {
		return err
	}
	printInfo("Cleared %d transfer(s)\n", n)
	return nil
}

func describeRecord(rec transfer.Record) string {
	s := fmt.Sprintf("%s -> %s", rec.Source, rec.Dest)
	if rec.TimeStamp != nil {
		s += "  " + rec.TimeStamp.UTC().Format(transfer.TimeLayout)
	}
	if rec.LastDump != nil && *rec.LastDump {
		s += "  last-dump"
	}
	if rec.FinalShipment != nil && *rec.FinalShipment {
		s += "  final"
	}
	if rec.FarmerID != nil {
		s += "  farmer=" + *rec.FarmerID
	}
	return s
}

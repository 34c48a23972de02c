package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/boxtrace/tag/codec"
	"github.com/joshuapare/boxtrace/transfer"
	"github.com/joshuapare/boxtrace/workflow"
)

var (
	transferSource string
	transferDest   string
	transferFarmer string

	// stdin is where prompts read answers from.
	stdin io.Reader = os.Stdin
)

func init() {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Record one box-to-box transfer interactively",
		Long: `The transfer command walks through one transfer: it reads the source box,
offers to mark it as waste, reads the destination box, asks whether this was
the last dump and the final shipment, then submits the record. If the backend
cannot be reached the record is saved to the offline queue.

Example:
  boxctl transfer --source box42.bin --dest box7.bin --farmer farmer-9`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&transferSource, "source", "", "Tag image of the source box")
	cmd.Flags().StringVar(&transferDest, "dest", "", "Tag image of the destination box")
	cmd.Flags().StringVar(&transferFarmer, "farmer", "", "Farmer the source box came from (defaults to farmer_id from config)")
	_ = cmd.MarkFlagRequired("source")
	rootCmd.AddCommand(cmd)
}

func runTransfer(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	images := []string{transferSource}
	if transferDest != "" {
		images = append(images, transferDest)
	}
	scanner := imageScanner(codec.New(codec.WithLogger(rt.log)), images)

	var opts []workflow.Option
	opts = append(opts, workflow.WithLogger(rt.log), workflow.WithLocateTimeout(rt.cfg.Location.Timeout))
	if loc := rt.locator(); loc != nil {
		opts = append(opts, workflow.WithLocator(loc))
	}
	ctrl := workflow.New(rt.cfg.EmployeeID, scanner, rt.client, rt.queue, opts...)

	var farmerID *string
	switch {
	case transferFarmer != "":
		farmerID = &transferFarmer
	case rt.cfg.FarmerID != "":
		farmerID = &rt.cfg.FarmerID
	}

	outcome, err := ctrl.Run(ctx, farmerID, newLinePrompter(stdin))
	if jsonOut && outcome != workflow.OutcomeNone {
		if perr := printJSON(map[string]string{"outcome": outcome.String()}); perr != nil {
			return perr
		}
	}
	return err
}

// imageScanner reads the given tag images in turn, one per scan.
func imageScanner(c *codec.Codec, paths []string) workflow.Scanner {
	next := 0
	return workflow.ScannerFunc(func(ctx context.Context) (transfer.BoxID, error) {
		if next >= len(paths) {
			return "", fmt.Errorf("no tag image for scan %d", next+1)
		}
		path := paths[next]
		next++
		m, err := loadImage(path)
		if err != nil {
			return "", err
		}
		printVerbose("Reading tag image: %s\n", path)
		return c.ReadBoxID(ctx, m)
	})
}

// linePrompter asks questions on stdout and reads y/n answers one line at a
// time.
type linePrompter struct {
	in *bufio.Scanner
}

func newLinePrompter(r io.Reader) *linePrompter {
	return &linePrompter{in: bufio.NewScanner(r)}
}

func (p *linePrompter) Notify(msg string) {
	printInfo("%s\n", msg)
}

func (p *linePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		printInfo("%s [y/n] ", question)
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return false, err
			}
			return false, errors.New("no answer: input closed")
		}
		switch strings.ToLower(strings.TrimSpace(p.in.Text())) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		printInfo("Please answer y or n.\n")
	}
}

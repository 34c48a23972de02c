package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/boxtrace/tag"
	"github.com/joshuapare/boxtrace/tag/codec"
	"github.com/joshuapare/boxtrace/transfer"
)

var (
	tagRaw   bool
	tagText  bool
	tagPages int
)

func init() {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Read and write box numbers on tag images",
	}
	cmd.AddCommand(newTagReadCmd(), newTagWriteCmd(), newTagDumpCmd(), newTagPlanCmd())
	rootCmd.AddCommand(cmd)
}

func newTagReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <image>",
		Short: "Read the box number stored on a tag",
		Long: `The read command decodes the box number from a raw tag memory image.

Example:
  boxctl tag read box42.bin
  boxctl tag read box42.bin --raw`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagRead(cmd.Context(), args)
		},
	}
	cmd.Flags().BoolVar(&tagRaw, "raw", false, "Print the stored text without parsing it as a number")
	return cmd
}

func newTagWriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <image> <number>",
		Short: "Write a box number onto a tag (Add New Box)",
		Long: `The write command stores a box number on a tag image, creating a blank
tag image if the file does not exist.

Example:
  boxctl tag write box42.bin 42
  boxctl tag write new.bin 7 --pages 45`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagWrite(cmd.Context(), args)
		},
	}
	cmd.Flags().BoolVar(&tagText, "text", false, "Store arbitrary text instead of a box number")
	cmd.Flags().IntVar(&tagPages, "pages", tag.NTAG215Pages, "Page count for a new tag image (45, 135 or 231)")
	return cmd
}

func newTagDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <image>",
		Short: "Hex dump of every page of a tag image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagDump(args)
		},
	}
}

func newTagPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <text>",
		Short: "Show the WRITE commands that would store text on a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagPlan(args)
		},
	}
}

func runTagRead(ctx context.Context, args []string) error {
	m, err := loadImage(args[0])
	if err != nil {
		return err
	}
	c := codec.New()

	if tagRaw {
		text, err := c.ReadText(ctx, m)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]string{"text": text})
		}
		fmt.Println(text)
		return nil
	}

	id, err := c.ReadBoxID(ctx, m)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]string{"box_id": id.String()})
	}
	fmt.Println(id)
	return nil
}

func runTagWrite(ctx context.Context, args []string) error {
	path, text := args[0], args[1]
	if !tagText {
		id, err := transfer.ParseBoxID(text)
		if err != nil {
			return err
		}
		text = id.String()
	}

	m, err := loadOrCreateImage(path, tagPages)
	if err != nil {
		return err
	}
	if err := codec.New().WriteText(ctx, m, text); err != nil {
		return err
	}
	if err := saveImage(path, m); err != nil {
		return err
	}
	printInfo("Wrote %q to %s\n", text, path)
	return nil
}

func runTagDump(args []string) error {
	m, err := loadImage(args[0])
	if err != nil {
		return err
	}
	return m.Dump(os.Stdout)
}

func runTagPlan(args []string) error {
	writes, err := codec.Layout(args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		type pageJSON struct {
			Page int    `json:"page"`
			Cmd  string `json:"cmd"`
		}
		out := make([]pageJSON, len(writes))
		for i, w := range writes {
			out[i] = pageJSON{Page: int(w.Page), Cmd: fmt.Sprintf("% X", frame(w))}
		}
		return printJSON(out)
	}
	for _, w := range writes {
		fmt.Printf("% X\n", frame(w))
	}
	return nil
}

func frame(w codec.PageWrite) []byte {
	return append([]byte{tag.CmdWrite, w.Page}, w.Data[:]...)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var dumpLimit int

var dumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Print decoded samples, one pixel per line",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().IntVarP(&dumpLimit, "limit", "n", 16, "maximum pixels to print, 0 for all")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	l, err := newLoader()
	if err != nil {
		return err
	}
	img, err := loadPath(l, args[0])
	if err != nil {
		return err
	}
	defer img.Release()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %dx%d, %d channels\n", img.Width, img.Height, img.Channels)

	total := img.Width * img.Height
	n := total
	if dumpLimit > 0 && dumpLimit < n {
		n = dumpLimit
	}

	var sb strings.Builder
	for i := 0; i < n; i++ {
		x, y := i%img.Width, i/img.Width
		sb.Reset()
		fmt.Fprintf(&sb, "%d %d:", x, y)
		for c := 0; c < img.Channels; c++ {
			fmt.Fprintf(&sb, " %g", img.Sample(x, y, c))
		}
		fmt.Fprintln(out, sb.String())
	}
	if n < total {
		fmt.Fprintf(out, "# %d more pixels\n", total-n)
	}
	return nil
}

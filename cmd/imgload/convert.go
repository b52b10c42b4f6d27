package main

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"go-image-loader/internal/loader"
)

var convertCmd = &cobra.Command{
	Use:   "convert [input] [output]",
	Short: "Decode an image and re-encode it; the output format follows the extension",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	l, err := newLoader()
	if err != nil {
		return err
	}
	img, err := loadPath(l, args[0])
	if err != nil {
		return err
	}
	defer img.Release()

	out, err := homedir.Expand(args[1])
	if err != nil {
		return fmt.Errorf("expanding %s: %w", args[1], err)
	}
	if err := loader.Save(out, img); err != nil {
		return fmt.Errorf("writing %s: %w", args[1], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%dx%d, %d channels)\n", args[0], args[1], img.Width, img.Height, img.Channels)
	return nil
}

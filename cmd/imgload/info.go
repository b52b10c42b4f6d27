package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go-image-loader/internal/analyzer"
	"go-image-loader/internal/imageio"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info [file...]",
	Short: "Print dimensions, format and per-channel statistics",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "print JSON instead of text")
	rootCmd.AddCommand(infoCmd)
}

type imageInfo struct {
	File     string                  `json:"file"`
	Width    int                     `json:"width"`
	Height   int                     `json:"height"`
	Channels int                     `json:"channels"`
	Format   string                  `json:"format"`
	MIME     string                  `json:"mime"`
	HDR      bool                    `json:"hdr"`
	Stats    []analyzer.ChannelStats `json:"stats"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	l, err := newLoader()
	if err != nil {
		return err
	}
	calc := analyzer.NewStatsCalculator(0)
	defer calc.Close()

	out := cmd.OutOrStdout()
	for _, path := range args {
		img, err := loadPath(l, path)
		if err != nil {
			return err
		}
		info := imageInfo{
			File:     path,
			Width:    img.Width,
			Height:   img.Height,
			Channels: img.Channels,
			Format:   img.Format,
			MIME:     img.MIME,
			HDR:      imageio.IsHDR(path),
			Stats:    calc.CalculateChannelStats(img.Pixels, img.Channels),
		}
		img.Release()

		if infoJSON {
			if err := json.NewEncoder(out).Encode(info); err != nil {
				return err
			}
			continue
		}
		printInfo(out, info)
	}
	return nil
}

func printInfo(w io.Writer, info imageInfo) {
	fmt.Fprintf(w, "File:       %s\n", info.File)
	fmt.Fprintf(w, "Dimensions: %d x %d\n", info.Width, info.Height)
	fmt.Fprintf(w, "Channels:   %d\n", info.Channels)
	fmt.Fprintf(w, "Format:     %s (%s)\n", info.Format, info.MIME)
	fmt.Fprintf(w, "HDR:        %v\n", info.HDR)
	for _, s := range info.Stats {
		fmt.Fprintf(w, "  channel %d: min=%.6g max=%.6g mean=%.6g std=%.6g", s.Channel, s.Min, s.Max, s.Mean, s.StdDev)
		if s.OutOfRange > 0 {
			fmt.Fprintf(w, " out_of_range=%d", s.OutOfRange)
		}
		if s.NonFinite > 0 {
			fmt.Fprintf(w, " non_finite=%d", s.NonFinite)
		}
		fmt.Fprintln(w)
	}
}

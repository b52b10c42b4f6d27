package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"go-image-loader/internal/factory"
	"go-image-loader/internal/loader"
	"go-image-loader/internal/logger"
)

var (
	backendName string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "imgload",
	Short:         "Decode images into float32 pixel buffers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.UseTextFormatter()
		if verbose {
			logger.SetLevel("debug")
		} else {
			logger.SetLevel("warn")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "image backend (default \"go\")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLoader() (*loader.Loader, error) {
	return factory.NewLoaderFactory().CreateLoader(backendName, 0)
}

// loadPath expands ~ and decodes path
func loadPath(l *loader.Loader, path string) (*loader.DecodedImage, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", path, err)
	}
	img, err := l.Load(expanded)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return img, nil
}

// Package cli wires the storyconvert command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "storyconvert",
	Short:        "Convert classic story documents into graph documents",
	Long:         `storyconvert converts legacy journal, swipe, tour and series story exports into the canonical graph document format, including spatial view normalization and media collection.`,
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML options file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

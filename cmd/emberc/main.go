package main

import (
	"os"

	"github.com/spf13/cobra"

	"ember/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "emberc",
	Short: "Ember language semantic core driver",
	Long:  `emberc runs the ember compiler's semantic pipeline (resolve, desugar, type check, ownership, borrow, closure-inline) and reports structured diagnostics.`,
}

func main() {
	rootCmd.Version = version.VersionString()

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(monoCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show per-stage timing information")
	rootCmd.PersistentFlags().Bool("track-timeline", false, "record per-variable ownership timelines")
	rootCmd.PersistentFlags().Bool("track-costs", false, "record allocation and copy cost estimates")
	rootCmd.PersistentFlags().Bool("warn-costs", false, "emit P10xx performance advisories")
	rootCmd.PersistentFlags().String("language", "en", "locale tag for diagnostic messages")
	rootCmd.PersistentFlags().IntSlice("allow", nil, "diagnostic codes to suppress (e.g. 10001)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ember/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the emberc version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.VersionString())
	},
}

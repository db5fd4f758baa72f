package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.publisherVersion=x.y.z"
var publisherVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the gep-publisher version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "gep-publisher version %s\n", publisherVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

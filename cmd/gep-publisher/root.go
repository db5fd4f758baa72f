package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridprotectionalliance/gep-publisher/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gep-publisher",
	Short: "Gateway Exchange Protocol publisher",
	Long: `gep-publisher accepts GEP subscriber connections over a dual-channel
transport, compiles their filter expressions against a metadata catalog, and
streams time-series measurements to them as framed binary packets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.gep-publisher/config.yaml)")
}

package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var metricsAddrFlag string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Fetch Prometheus-format counters from a running publisher's metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := metricsAddrFlag
		if addr == "" {
			addr = cfg.MetricsAddress
		}
		host := addr
		if strings.HasPrefix(addr, ":") {
			host = "localhost" + addr
		}
		url := "http://" + host + "/metrics"

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("fetch metrics from %s: %w", url, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read metrics response: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(body))
		return nil
	},
}

func init() {
	metricsCmd.Flags().StringVar(&metricsAddrFlag, "addr", "", "publisher metrics address (default: config metrics_address)")
	rootCmd.AddCommand(metricsCmd)
}

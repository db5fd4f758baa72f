package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridprotectionalliance/gep-publisher/internal/metrics"
	"github.com/gridprotectionalliance/gep-publisher/internal/publisher"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the publisher, accepting subscriber connections until interrupted",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func securityMode(s string) publisher.SecurityMode {
	if s == "tls" {
		return publisher.SecurityTLS
	}
	return publisher.SecurityOpen
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := publisher.New(publisher.Config{
		ListenAddress:        cfg.ListenAddress,
		Security:             securityMode(cfg.Security),
		AllowMetadataRefresh: cfg.AllowMetadataRefresh,
		AllowNaNFilter:       cfg.AllowNaNFilter,
		ForceNaNFilter:       cfg.ForceNaNFilter,
		CipherRotationPeriod: cfg.CipherRotationPeriod,
		PingInterval:         cfg.PingInterval,
	})
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	p.DefineMetadata(publisher.NewCatalog())

	m := metrics.New()
	p.StatusMessageFunc = func(message string) { log.Printf("status: %s", message) }
	p.ErrorMessageFunc = func(message string) {
		m.ProtocolError()
		log.Printf("error: %s", message)
	}
	p.ClientConnectedFunc = func(subscriberID wire.Guid) {
		m.ConnectionAccepted()
		log.Printf("client connected: %s", subscriberID)
	}
	p.ClientDisconnectedFunc = func(subscriberID wire.Guid) {
		m.ConnectionClosed()
		log.Printf("client disconnected: %s", subscriberID)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", m.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddress, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server error: %v", err)
			}
		}()
		log.Printf("metrics listening on %s", cfg.MetricsAddress)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	go func() {
		<-ctx.Done()
		p.Stop()
		if metricsServer != nil {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = metricsServer.Shutdown(shutCtx)
		}
	}()

	log.Printf("gep-publisher listening on %s (node %s)", cfg.ListenAddress, p.NodeID())
	if err := p.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

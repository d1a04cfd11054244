package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SiddharthSanch/product-discoverer/internal/config"
	"github.com/SiddharthSanch/product-discoverer/internal/database"
	"github.com/SiddharthSanch/product-discoverer/internal/log"
	"github.com/SiddharthSanch/product-discoverer/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for crawl jobs",
		Long: `Serve starts an HTTP API that accepts crawl requests and serves
results:

  POST /crawl            {"domains": ["shop.example.com", ...]}
  GET  /status/:id       live job status
  GET  /download/:domain the result file for a domain

Every domain in a batch is validated for reachability before any job
starts; a batch with an unreachable domain is rejected with a 400.

Example:
  discoverer serve --addr :8080`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addCrawlFlags(cmd)

	cmd.Flags().StringP("addr", "a", config.DefaultServeAddr,
		"Listen address for the HTTP API")
	cmd.Flags().StringP("output", "o", "",
		"Directory for result files (default: XDG data directory)")
	cmd.Flags().BoolP("markdown-summary", "m", false,
		"Write a markdown crawl summary next to each result file")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of domains crawled concurrently")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}

	cfg.ServeAddr, err = cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, stopping server...")
		cancel()
	}()

	return runServe(ctx, cfg, logger)
}

// runServe starts the HTTP API.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var opts []server.ServerOption
	opts = append(opts, server.WithServerLogger(logger))

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("crawl history disabled", "error", err)
	} else {
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}()
		opts = append(opts, server.WithDatabase(db))
	}

	fmt.Printf("Serving the discoverer API on %s\n", cfg.ServeAddr)
	return server.New(cfg, opts...).Run(ctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SiddharthSanch/product-discoverer/internal/config"
	"github.com/SiddharthSanch/product-discoverer/internal/database"
	"github.com/SiddharthSanch/product-discoverer/internal/log"
	"github.com/SiddharthSanch/product-discoverer/internal/model"
	"github.com/SiddharthSanch/product-discoverer/internal/pipeline"
	"github.com/SiddharthSanch/product-discoverer/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [domain]...",
		Short: "Crawl domains and write their product page URL lists",
		Long: `Crawl performs a breadth-first traversal of each domain, rendering
pages in a headless browser and scrolling to trigger lazy-loaded
content. Every successfully rendered canonical URL lands in a result
file named after the domain, one URL per line, sorted.

Examples:
  # Crawl a single storefront
  discoverer crawl shop.example.com

  # Crawl several domains, three at a time
  discoverer crawl --batch 3 a.example b.example c.example

  # Bound each crawl to 200 pages and 10 minutes
  discoverer crawl --max-pages 200 --budget 10m shop.example.com

  # Skip the browser for a server-rendered shop
  discoverer crawl --no-render shop.example.com

Configuration file (.discoverer) example:
  sites:
    shop.example.com:
      cookie: "locale=en_US"
      maxPages: 1000
      maxScrolls: 8`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)

	cmd.Flags().StringP("output", "o", "",
		"Directory for result files (default: XDG data directory)")
	cmd.Flags().BoolP("markdown-summary", "m", false,
		"Write a markdown crawl summary next to each result file")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of domains crawled concurrently")

	return cmd
}

// addCrawlFlags registers the crawl behavior flags shared by the crawl
// and serve commands.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Concurrent render pipelines per domain")
	cmd.Flags().Int("max-scrolls", config.DefaultMaxScrolls,
		"Maximum scroll iterations per page (0 disables scrolling)")
	cmd.Flags().Duration("scroll-wait", config.DefaultScrollWait,
		"Settle interval between a scroll and the height measurement")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Page budget per domain")
	cmd.Flags().IntP("max-depth", "d", 0,
		"Maximum traversal depth from the seed (0 = unlimited)")
	cmd.Flags().Duration("budget", 0,
		"Wall-clock budget per domain (0 = unlimited)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultLoadTimeout,
		"Per-page navigation timeout")
	cmd.Flags().IntP("retry", "r", config.DefaultRetryCount,
		"Retries for a failed page navigation")
	cmd.Flags().Bool("no-render", false,
		"Fetch pages with a plain HTTP client instead of a browser")
	cmd.Flags().Bool("allow-subdomains", false,
		"Follow links to subdomains of the target host")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .discoverer in current or home directory)")
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.MaxScrolls, err = cmd.Flags().GetInt("max-scrolls")
	if err != nil {
		return nil, err
	}

	cfg.ScrollWait, err = cmd.Flags().GetDuration("scroll-wait")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("max-depth")
	if err != nil {
		return nil, err
	}

	cfg.Budget, err = cmd.Flags().GetDuration("budget")
	if err != nil {
		return nil, err
	}

	cfg.LoadTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.RetryCount, err = cmd.Flags().GetInt("retry")
	if err != nil {
		return nil, err
	}

	noRender, err := cmd.Flags().GetBool("no-render")
	if err != nil {
		return nil, err
	}
	cfg.Render = !noRender

	cfg.AllowSubdomains, err = cmd.Flags().GetBool("allow-subdomains")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Flags registered by the crawl command only.
	if f := cmd.Flags().Lookup("output"); f != nil && f.Value.String() != "" {
		cfg.OutputDir = f.Value.String()
	}
	if f := cmd.Flags().Lookup("markdown-summary"); f != nil {
		cfg.MarkdownSummary = f.Value.String() == "true"
	}
	if f := cmd.Flags().Lookup("batch"); f != nil {
		cfg.BatchSize, err = cmd.Flags().GetInt("batch")
		if err != nil {
			return nil, err
		}
	}

	// Load per-site configurations from the config file.
	// An explicitly specified file must exist; the default search may
	// come up empty without it being an error.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.DBDir = config.XDGDataDir()
	cfg.Targets = args

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no targets provided (specify one or more domains as arguments)")
	}

	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"maxPages", cfg.MaxPages,
		"render", cfg.Render,
	)

	// Crawl history is best effort: a read-only data directory should
	// not block the crawl itself.
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("crawl history disabled", "error", err)
		db = nil
	} else {
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}()
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(cfg, db, pipeline.WithLogger(logger))
		},
		pipeline.WithBatchConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	fmt.Printf("Crawling %d domain(s) (concurrency: %d)...\n\n", len(cfg.Targets), cfg.BatchSize)
	startTime := time.Now()

	writer := report.NewSimpleWriter(os.Stdout, report.WithVerbose(cfg.Verbose))

	var (
		mu     sync.Mutex
		failed int
	)
	err = bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(job *model.CrawlJob) {
		mu.Lock()
		defer mu.Unlock()

		snap := job.Snapshot()
		if snap.Status == model.StatusFailed {
			failed++
		}
		if _, werr := writer.Write(snap); werr != nil {
			logger.Error("summary output failed", "domain", snap.Domain, "error", werr)
		}
		fmt.Println()
	})
	if err != nil {
		return err
	}

	fmt.Printf("Done in %s. Result files are in %s\n",
		time.Since(startTime).Round(time.Millisecond), cfg.OutputDir)

	if failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, len(cfg.Targets))
	}
	return nil
}

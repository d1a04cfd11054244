// Package main provides the entry point for the discoverer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the discoverer.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discoverer",
		Short: "Discover product page URLs on e-commerce domains",
		Long: `The discoverer crawls e-commerce domains breadth-first with a headless
browser, scrolling each page to trigger lazy-loaded content, and writes
one result file per domain listing every canonical URL it found.

Crawls are bounded: a page budget and an optional wall-clock budget keep
effectively infinite catalogs (filters, sorts, pagination) from running
forever. A budget-capped crawl still produces a valid, partial result.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

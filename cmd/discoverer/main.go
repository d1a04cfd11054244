// Package main provides the entry point for the discoverer CLI.
//
// The discoverer crawls e-commerce domains with a headless browser and
// writes one result file per domain containing every canonical page URL
// it found.
//
// Usage:
//
//	discoverer crawl <domain>...
//	discoverer serve
//
// See --help for all available options.
package main

// main is the entry point for the discoverer.
func main() {
	Execute()
}

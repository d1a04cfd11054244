// Package model defines the core data types shared across the discoverer.
//
// The central type is CrawlJob, which tracks the lifecycle of one per-domain
// crawl from acceptance through completion. PageSnapshot carries the rendered
// HTML of a single page from the renderer to the link extractor and is not
// retained afterwards.
//
// Design decision: Types live in their own package rather than in the crawler
// package because they cross component boundaries: the HTTP server reads job
// state that the pipeline writes, and the database serializes jobs long after
// the crawler that produced them is gone.
package model

// Package pipeline orchestrates the per-domain crawl workflow.
//
// A crawl job moves through an ordered sequence of steps: reachability
// validation, the browser-driven traversal, database persistence, the
// result file, and an optional markdown summary. Steps implement a
// small interface and act on a shared CrawlJob, so the CLI and the
// HTTP API assemble the same workflow from the same parts.
//
// BatchProcessor runs the pipeline for several domains at once with
// bounded concurrency. Domains are isolated: a failed domain marks its
// own job failed and the rest of the batch continues.
package pipeline

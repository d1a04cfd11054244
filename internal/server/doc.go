// Package server exposes the discoverer over HTTP.
//
// POST /crawl accepts a list of domains, validates that every one of
// them answers HTTP, and starts background crawl jobs. Validation
// happens before acceptance so a typo in one domain rejects the whole
// batch with a 400 instead of producing a job that fails minutes later.
//
// GET /status/:id reports live progress for jobs owned by this process
// and falls back to the SQLite history for jobs from earlier runs.
// GET /download/:domain serves the result file.
//
// The server keeps accepted jobs in an in-memory Manager; durable state
// lives in the database written by the pipeline's persist step.
package server

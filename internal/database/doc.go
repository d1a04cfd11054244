// Package database provides SQLite-based storage for crawl jobs.
//
// This package implements the CrawlDB, which stores:
//   - One job record per crawl run (status, counters, timing)
//   - The result URL set of each completed job
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// The result files under the output directory remain the primary
// deliverable; the database exists so job history and the download and
// status endpoints survive a process restart.
package database

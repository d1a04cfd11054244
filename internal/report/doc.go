// Package report writes crawl results to their output formats.
//
// This package contains writers for different outputs:
//   - URL list: the primary deliverable, one canonical URL per line
//   - SimpleWriter: human-readable text summary for terminal display
//   - MarkdownWriter: markdown crawl summary for documentation
//
// Design decision: We separate report writing from the job data
// structures (which are in the model package) to follow the single
// responsibility principle. This allows adding new output formats
// without modifying the core data structures.
//
// Summary writers implement the Writer interface, allowing them to be
// used interchangeably and composed for multi-format output.
package report

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// SimpleWriter outputs a human-readable text summary of a crawl job.
// This format is designed for terminal display after a CLI crawl.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the full URL listing in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output including the discovered URLs.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the job summary as plain text.
func (w *SimpleWriter) Write(snap model.JobSnapshot) (int, error) {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Crawl summary: %s\n", snap.Domain)
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Status:          %s\n", w.statusText(snap))
	fmt.Fprintf(&b, "Discovered URLs: %d\n", snap.Stats.Discovered)
	fmt.Fprintf(&b, "Visited pages:   %d\n", snap.Stats.Visited)
	fmt.Fprintf(&b, "Failed pages:    %d\n", snap.Stats.Failed)
	if !snap.StartedAt.IsZero() && !snap.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration:        %s\n", snap.FinishedAt.Sub(snap.StartedAt).Round(time.Millisecond))
	}

	if w.verbose && len(snap.URLs) > 0 {
		b.WriteString("\nResult URLs:\n")
		for _, u := range snap.URLs {
			fmt.Fprintf(&b, "  %s\n", u)
		}
	}

	return io.WriteString(w.output, b.String())
}

// statusText renders the job status with budget context.
func (w *SimpleWriter) statusText(snap model.JobSnapshot) string {
	switch snap.Status {
	case model.StatusCompleted:
		if snap.BudgetCapped {
			return "completed (budget capped, partial catalog)"
		}
		return "completed"
	case model.StatusFailed:
		return "failed - " + snap.ErrorMessage
	default:
		return string(snap.Status)
	}
}

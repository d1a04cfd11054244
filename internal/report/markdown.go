package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// MarkdownWriter outputs crawl summaries in Markdown format.
// This format is designed for documentation and sharing: the summary is
// written next to the URL list so a result directory explains itself.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the job summary in Markdown format.
func (w *MarkdownWriter) Write(snap model.JobSnapshot) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + snap.Domain + "`"},
			{"Job ID", "`" + snap.ID + "`"},
			{"Status", w.statusText(snap)},
			{"Discovered URLs", strconv.Itoa(snap.Stats.Discovered)},
			{"Visited pages", strconv.Itoa(snap.Stats.Visited)},
			{"Failed pages", strconv.Itoa(snap.Stats.Failed)},
		},
	})
	md.PlainText("")

	if !snap.StartedAt.IsZero() {
		md.H2("Timing")
		md.PlainText("")
		rows := [][]string{
			{"Started", snap.StartedAt.Format("2006-01-02 15:04:05 MST")},
		}
		if !snap.FinishedAt.IsZero() {
			rows = append(rows,
				[]string{"Finished", snap.FinishedAt.Format("2006-01-02 15:04:05 MST")},
				[]string{"Duration", snap.FinishedAt.Sub(snap.StartedAt).String()},
			)
		}
		md.Table(markdown.TableSet{
			Header: []string{"Event", "Time"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if snap.BudgetCapped {
		md.Warning("The crawl stopped at a configured budget. The URL list is a partial catalog.")
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// statusText renders the job status for the summary table.
func (w *MarkdownWriter) statusText(snap model.JobSnapshot) string {
	switch snap.Status {
	case model.StatusCompleted:
		return "✅ Completed"
	case model.StatusFailed:
		return "❌ Failed - " + snap.ErrorMessage
	default:
		return string(snap.Status)
	}
}

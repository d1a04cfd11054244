package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
	"github.com/SiddharthSanch/product-discoverer/internal/probe"
)

// BatchProcessor crawls multiple domains concurrently.
// Each domain gets its own job and its own pipeline instance, so
// per-domain state (browser, frontier, counters) is never shared.
//
// Design decision: We use errgroup with SetLimit rather than a manual
// worker pool because:
// 1. It provides context propagation for cancellation
// 2. SetLimit gives us bounded concurrency with less code
// 3. Errors are collected automatically
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline per domain.
	pipelineFactory func() *Pipeline

	// concurrency limits how many domains crawl at once. Each domain may
	// launch its own browser, so this is a memory bound more than a
	// network one.
	concurrency int

	// logger for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchConcurrency sets how many domains are crawled concurrently.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets a custom logger for the batch processor.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// NewBatchProcessor creates a batch processor.
// The factory is called once per domain to create its pipeline.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     3,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// ProcessBatch crawls all targets and returns their jobs.
// Targets are normalized to seed URLs before the jobs are created, so
// "example.com" and "https://www.example.com" behave identically.
//
// A failing domain marks its own job failed and does not stop the
// others; the returned error reflects batch-level cancellation only.
func (b *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.CrawlJob, error) {
	jobs := make([]*model.CrawlJob, len(targets))
	for i, target := range targets {
		jobs[i] = model.NewCrawlJob(probe.EnsureURL(target))
	}

	return jobs, b.ProcessJobs(ctx, jobs)
}

// ProcessJobs runs the pipeline for jobs created by the caller.
// The HTTP API uses this form: it creates the jobs up front so their
// IDs can be returned before the batch starts.
func (b *BatchProcessor) ProcessJobs(ctx context.Context, jobs []*model.CrawlJob) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for _, job := range jobs {
		g.Go(func() error {
			b.logger.Info("starting crawl", "domain", job.Domain, "job_id", job.ID)

			p := b.pipelineFactory()
			if err := p.Execute(ctx, job); err != nil {
				// The pipeline already marked the job failed; one bad
				// domain must not cancel the rest of the batch.
				b.logger.Warn("crawl failed", "domain", job.Domain, "error", err)
				return nil
			}

			b.logger.Info("crawl finished", "domain", job.Domain, "job_id", job.ID)
			return nil
		})
	}

	return g.Wait()
}

// ProcessBatchWithCallback crawls all targets, invoking the callback as
// each domain finishes. The callback may be called from any worker
// goroutine; the CLI uses it to print each summary as soon as the
// domain is done rather than after the whole batch.
func (b *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, targets []string, callback func(*model.CrawlJob)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for _, target := range targets {
		job := model.NewCrawlJob(probe.EnsureURL(target))
		g.Go(func() error {
			p := b.pipelineFactory()
			if err := p.Execute(ctx, job); err != nil {
				b.logger.Warn("crawl failed", "domain", job.Domain, "error", err)
			}
			callback(job)
			return nil
		})
	}

	return g.Wait()
}

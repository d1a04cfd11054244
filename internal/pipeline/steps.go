package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SiddharthSanch/product-discoverer/internal/config"
	"github.com/SiddharthSanch/product-discoverer/internal/crawler"
	"github.com/SiddharthSanch/product-discoverer/internal/database"
	"github.com/SiddharthSanch/product-discoverer/internal/model"
	"github.com/SiddharthSanch/product-discoverer/internal/probe"
	"github.com/SiddharthSanch/product-discoverer/internal/render"
	"github.com/SiddharthSanch/product-discoverer/internal/report"
)

// RendererFactory builds a renderer for one crawl job from the merged
// per-domain config. The crawl step owns the returned renderer and
// closes it when the job finishes.
//
// Design decision: A factory rather than a shared renderer because
// per-domain overrides (rendering disabled, scroll settings, session
// headers) are baked into the renderer at construction time.
type RendererFactory func(ctx context.Context, cfg config.Config, headers map[string]string) (render.Renderer, error)

// DefaultRendererFactory builds a headless-browser renderer, or a plain
// HTTP renderer for domains with rendering disabled.
func DefaultRendererFactory(ctx context.Context, cfg config.Config, headers map[string]string) (render.Renderer, error) {
	if !cfg.Render {
		return render.NewStaticRenderer(
			render.WithStaticHeaders(headers),
		), nil
	}

	return render.NewChromeRenderer(ctx,
		render.WithLoadTimeout(cfg.LoadTimeout),
		render.WithScrolls(cfg.MaxScrolls, cfg.ScrollWait),
		render.WithChromeHeaders(headers),
	)
}

// ValidateStep verifies the target answers HTTP before a browser is
// launched for it.
//
// Design decision: Validation is a separate step because:
// 1. An unreachable domain should fail fast, before Chrome starts
// 2. The HTTP API validates the whole batch up front with the same code
// 3. Reachability has its own timeout, shorter than a page load
type ValidateStep struct {
	// checker performs the reachability probe.
	checker *probe.Checker

	// logger for structured logging.
	logger *slog.Logger
}

// ValidateStepOption configures a ValidateStep.
type ValidateStepOption func(*ValidateStep)

// WithValidateLogger sets a custom logger for the validate step.
func WithValidateLogger(logger *slog.Logger) ValidateStepOption {
	return func(s *ValidateStep) {
		s.logger = logger
	}
}

// NewValidateStep creates a reachability validation step.
func NewValidateStep(checker *probe.Checker, opts ...ValidateStepOption) *ValidateStep {
	s := &ValidateStep{
		checker: checker,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ValidateStep) Name() string {
	return "validate"
}

// Do executes the validation step.
func (s *ValidateStep) Do(ctx context.Context, job *model.CrawlJob) error {
	seed, err := s.checker.Check(ctx, job.Domain)
	if err != nil {
		return err
	}

	s.logger.Debug("target reachable", "domain", job.Domain, "seed", seed)
	return nil
}

// CrawlStep runs the breadth-first traversal for one domain.
// It builds the renderer and URL policy from the merged per-domain
// config, drives the crawler, and records the result on the job.
type CrawlStep struct {
	// cfg is the base configuration; per-domain overrides are applied
	// when the step runs.
	cfg *config.Config

	// newRenderer builds the renderer for this job.
	newRenderer RendererFactory

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// WithRendererFactory replaces the renderer construction.
// Tests use this to crawl fake pages without a browser.
func WithRendererFactory(factory RendererFactory) CrawlStepOption {
	return func(s *CrawlStep) {
		s.newRenderer = factory
	}
}

// NewCrawlStep creates a crawl step over the given configuration.
func NewCrawlStep(cfg *config.Config, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		cfg:         cfg,
		newRenderer: DefaultRendererFactory,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, job *model.CrawlJob) error {
	host := hostOf(job.Domain)
	merged := s.cfg.ForDomain(host)
	headers := s.cfg.SiteHeaders(host)

	if err := job.MarkRunning(); err != nil {
		return err
	}

	renderer, err := s.newRenderer(ctx, merged, headers)
	if err != nil {
		return fmt.Errorf("failed to build renderer: %w", err)
	}
	defer func() {
		if cerr := renderer.Close(); cerr != nil {
			s.logger.Warn("renderer close failed", "domain", job.Domain, "error", cerr)
		}
	}()

	policy, err := crawler.NewPolicy(job.Domain, merged.ExcludePatterns,
		crawler.WithAllowSubdomains(merged.AllowSubdomains),
		crawler.WithDeniedExtensions(merged.DeniedExtensions),
		crawler.WithTrackingParams(merged.TrackingParams),
	)
	if err != nil {
		return fmt.Errorf("failed to build URL policy: %w", err)
	}

	c := crawler.New(renderer, policy,
		crawler.WithWorkers(merged.Concurrency),
		crawler.WithMaxDepth(merged.MaxDepth),
		crawler.WithMaxPages(merged.MaxPages),
		crawler.WithRetry(merged.RetryCount, time.Second),
		crawler.WithProgress(job.UpdateStats),
		crawler.WithLogger(s.logger),
	)

	// The wall-clock budget is the context deadline; the crawler returns
	// a partial result when it fires.
	crawlCtx := ctx
	if merged.Budget > 0 {
		var cancel context.CancelFunc
		crawlCtx, cancel = context.WithTimeout(ctx, merged.Budget)
		defer cancel()
	}

	result, err := c.Run(crawlCtx, job.Domain)
	if err != nil {
		return err
	}

	s.logger.Info("crawl completed",
		"domain", job.Domain,
		"visited", result.Stats.Visited,
		"discovered", result.Stats.Discovered,
		"failed", result.Stats.Failed,
		"capped", result.Capped,
	)

	return job.Complete(result.Visited, result.Capped)
}

// PersistStep saves the finished job and its URL set to the database.
type PersistStep struct {
	// db is the crawl history database.
	db *database.CrawlDB

	// logger for structured logging.
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a database persistence step.
func NewPersistStep(db *database.CrawlDB, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persistence step.
func (s *PersistStep) Do(ctx context.Context, job *model.CrawlJob) error {
	snap := job.Snapshot()
	if err := s.db.SaveJob(ctx, snap, snap.URLs); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}

	s.logger.Debug("job persisted", "job_id", snap.ID, "domain", snap.Domain)
	return nil
}

// WriteResultStep writes the URL list file for a completed job.
type WriteResultStep struct {
	// outputDir is the directory result files are written to.
	outputDir string

	// logger for structured logging.
	logger *slog.Logger
}

// WriteResultStepOption configures a WriteResultStep.
type WriteResultStepOption func(*WriteResultStep)

// WithWriteResultLogger sets a custom logger for the result step.
func WithWriteResultLogger(logger *slog.Logger) WriteResultStepOption {
	return func(s *WriteResultStep) {
		s.logger = logger
	}
}

// NewWriteResultStep creates a result file writing step.
func NewWriteResultStep(outputDir string, opts ...WriteResultStepOption) *WriteResultStep {
	s := &WriteResultStep{
		outputDir: outputDir,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *WriteResultStep) Name() string {
	return "write_result"
}

// Do executes the result writing step.
func (s *WriteResultStep) Do(ctx context.Context, job *model.CrawlJob) error {
	snap := job.Snapshot()
	if snap.Status != model.StatusCompleted {
		s.logger.Debug("skipping result file, job not completed", "domain", snap.Domain)
		return nil
	}

	path, err := report.WriteURLListFile(s.outputDir, snap.Domain, snap.URLs)
	if err != nil {
		return err
	}

	s.logger.Info("result file written",
		"domain", snap.Domain,
		"path", path,
		"urls", len(snap.URLs),
	)
	return nil
}

// SummaryStep writes a markdown crawl summary next to the result file.
type SummaryStep struct {
	// outputDir is the directory the summary is written to.
	outputDir string

	// logger for structured logging.
	logger *slog.Logger
}

// SummaryStepOption configures a SummaryStep.
type SummaryStepOption func(*SummaryStep)

// WithSummaryLogger sets a custom logger for the summary step.
func WithSummaryLogger(logger *slog.Logger) SummaryStepOption {
	return func(s *SummaryStep) {
		s.logger = logger
	}
}

// NewSummaryStep creates a markdown summary step.
func NewSummaryStep(outputDir string, opts ...SummaryStepOption) *SummaryStep {
	s := &SummaryStep{
		outputDir: outputDir,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do executes the summary step.
func (s *SummaryStep) Do(ctx context.Context, job *model.CrawlJob) error {
	snap := job.Snapshot()

	base := strings.TrimSuffix(report.OutputBaseName(snap.Domain), ".txt") + ".md"
	path := filepath.Join(s.outputDir, base)

	f, err := os.Create(path) //nolint:gosec // path is derived from the crawl target
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}

	if _, err := report.NewMarkdownWriter(f).Write(snap); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close summary file: %w", err)
	}

	s.logger.Debug("summary written", "domain", snap.Domain, "path", path)
	return nil
}

// DefaultPipeline creates a pipeline with the standard steps for one
// crawl job: validate, crawl, persist, write the result file, and
// optionally write a markdown summary.
//
// db may be nil, in which case persistence is skipped. This keeps the
// pipeline usable when the database directory is not writable.
func DefaultPipeline(cfg *config.Config, db *database.CrawlDB, opts ...Option) *Pipeline {
	p := New(opts...)

	p.AddSteps(
		NewValidateStep(probe.NewChecker(), WithValidateLogger(p.logger)),
		NewCrawlStep(cfg, WithCrawlLogger(p.logger)),
	)
	if db != nil {
		p.AddStep(NewPersistStep(db, WithPersistLogger(p.logger)))
	}
	p.AddStep(NewWriteResultStep(cfg.OutputDir, WithWriteResultLogger(p.logger)))
	if cfg.MarkdownSummary {
		p.AddStep(NewSummaryStep(cfg.OutputDir, WithSummaryLogger(p.logger)))
	}

	return p
}

// hostOf extracts the bare host from a seed URL for per-site config
// lookup. The www. prefix is stripped so config keys match the result
// file naming.
func hostOf(target string) string {
	host := target
	if strings.Contains(target, "://") {
		if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	} else {
		host, _, _ = strings.Cut(host, "/")
	}
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

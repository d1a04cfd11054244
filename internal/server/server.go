package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/SiddharthSanch/product-discoverer/internal/config"
	"github.com/SiddharthSanch/product-discoverer/internal/database"
	"github.com/SiddharthSanch/product-discoverer/internal/model"
	"github.com/SiddharthSanch/product-discoverer/internal/pipeline"
	"github.com/SiddharthSanch/product-discoverer/internal/probe"
	"github.com/SiddharthSanch/product-discoverer/internal/report"
)

// Launcher runs accepted jobs in the background. The server hands it
// pre-validated jobs and returns to the client immediately.
type Launcher func(ctx context.Context, jobs []*model.CrawlJob)

// Server exposes the discoverer over HTTP.
//
// Endpoints:
//
//	POST /crawl            accept a domain list, start background jobs
//	GET  /status/:id       live job status
//	GET  /download/:domain the result file for a domain
//	GET  /health           liveness probe
type Server struct {
	// cfg is the crawl configuration applied to every accepted job.
	cfg *config.Config

	// db is the crawl history database. May be nil.
	db *database.CrawlDB

	// manager tracks jobs accepted by this process.
	manager *Manager

	// checker pre-validates domains before jobs are accepted.
	checker *probe.Checker

	// launch runs accepted jobs in the background.
	launch Launcher

	// engine is the gin router.
	engine *gin.Engine

	// logger for structured logging.
	logger *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets a custom logger for the server.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDatabase sets the crawl history database.
func WithDatabase(db *database.CrawlDB) ServerOption {
	return func(s *Server) {
		s.db = db
	}
}

// WithChecker sets the reachability checker.
// Tests use this to point validation at an httptest server.
func WithChecker(checker *probe.Checker) ServerOption {
	return func(s *Server) {
		s.checker = checker
	}
}

// WithLauncher replaces the background job launcher.
// Tests use this to observe accepted jobs without crawling.
func WithLauncher(launch Launcher) ServerOption {
	return func(s *Server) {
		s.launch = launch
	}
}

// New creates a Server over the given configuration.
func New(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		cfg:     cfg,
		manager: NewManager(),
		checker: probe.NewChecker(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.launch == nil {
		s.launch = s.defaultLauncher()
	}

	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.registerRoutes()

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully, letting in-flight requests finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ServeAddr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.cfg.ServeAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

// defaultLauncher builds the background batch runner: crawl, persist,
// result file, optional summary. Validation is skipped because the
// crawl handler already validated the whole batch.
func (s *Server) defaultLauncher() Launcher {
	factory := func() *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(s.logger))
		p.AddStep(pipeline.NewCrawlStep(s.cfg, pipeline.WithCrawlLogger(s.logger)))
		if s.db != nil {
			p.AddStep(pipeline.NewPersistStep(s.db, pipeline.WithPersistLogger(s.logger)))
		}
		p.AddStep(pipeline.NewWriteResultStep(s.cfg.OutputDir, pipeline.WithWriteResultLogger(s.logger)))
		if s.cfg.MarkdownSummary {
			p.AddStep(pipeline.NewSummaryStep(s.cfg.OutputDir, pipeline.WithSummaryLogger(s.logger)))
		}
		return p
	}

	batch := pipeline.NewBatchProcessor(factory,
		pipeline.WithBatchConcurrency(s.cfg.BatchSize),
		pipeline.WithBatchLogger(s.logger),
	)

	return func(ctx context.Context, jobs []*model.CrawlJob) {
		if err := batch.ProcessJobs(ctx, jobs); err != nil {
			s.logger.Error("batch processing failed", "error", err)
		}
	}
}

func (s *Server) registerRoutes() {
	s.engine.POST("/crawl", s.handleCrawl)
	s.engine.GET("/status/:id", s.handleStatus)
	s.engine.GET("/download/:domain", s.handleDownload)
	s.engine.GET("/health", s.handleHealth)
}

// crawlRequest is the POST /crawl body.
type crawlRequest struct {
	Domains []string `json:"domains" binding:"required"`
}

// jobHandle identifies an accepted job in the crawl response.
type jobHandle struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

// handleCrawl accepts a batch of domains. Every domain is validated for
// reachability before any job starts; one bad domain rejects the whole
// request so the client learns about typos immediately.
func (s *Server) handleCrawl(c *gin.Context) {
	var req crawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be {\"domains\": [...]}"})
		return
	}
	if len(req.Domains) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one domain is required"})
		return
	}

	seeds := make([]string, len(req.Domains))
	var (
		mu          sync.Mutex
		unreachable []string
	)

	g, ctx := errgroup.WithContext(c.Request.Context())
	for i, domain := range req.Domains {
		g.Go(func() error {
			seed, err := s.checker.Check(ctx, domain)
			if err != nil {
				mu.Lock()
				unreachable = append(unreachable, domain)
				mu.Unlock()
				return nil
			}
			seeds[i] = seed
			return nil
		})
	}
	_ = g.Wait()

	if len(unreachable) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "some domains are unreachable",
			"unreachable": unreachable,
		})
		return
	}

	jobs := make([]*model.CrawlJob, len(seeds))
	handles := make([]jobHandle, len(seeds))
	for i, seed := range seeds {
		jobs[i] = model.NewCrawlJob(seed)
		s.manager.Add(jobs[i])
		handles[i] = jobHandle{ID: jobs[i].ID, Domain: jobs[i].Domain}
	}

	// The crawl outlives the request; it runs on the background context.
	go s.launch(context.Background(), jobs)

	s.logger.Info("batch accepted", "domains", len(jobs))
	c.JSON(http.StatusAccepted, gin.H{"jobs": handles})
}

// handleStatus reports live job status. Jobs from earlier server runs
// are answered from the database.
func (s *Server) handleStatus(c *gin.Context) {
	id := c.Param("id")

	if job, ok := s.manager.Get(id); ok {
		snap := job.Snapshot()
		c.JSON(http.StatusOK, statusResponse(snap))
		return
	}

	if s.db != nil {
		rec, err := s.db.GetJob(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
			return
		}
		if rec != nil {
			c.JSON(http.StatusOK, recordResponse(rec))
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
}

// handleDownload serves the result file for a domain, falling back to
// the database when the file is missing from disk.
func (s *Server) handleDownload(c *gin.Context) {
	domain := c.Param("domain")
	name := report.OutputBaseName(domain)

	path := filepath.Join(s.cfg.OutputDir, name)
	if _, err := os.Stat(path); err == nil {
		c.FileAttachment(path, name)
		return
	}

	if s.db != nil {
		if urls := s.urlsFromHistory(c.Request.Context(), domain); urls != nil {
			c.Header("Content-Disposition", "attachment; filename="+name)
			c.Render(http.StatusOK, urlListRenderer{urls: urls})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "no result for domain"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"jobs":   s.manager.Len(),
	})
}

// urlsFromHistory loads the most recent completed result set for a
// domain from the database, or nil.
func (s *Server) urlsFromHistory(ctx context.Context, domain string) []string {
	rec, err := s.db.GetLatestJobByDomain(ctx, probe.EnsureURL(domain))
	if err != nil || rec == nil {
		return nil
	}
	urls, err := s.db.GetJobURLs(ctx, rec.ID)
	if err != nil || len(urls) == 0 {
		return nil
	}
	return urls
}

// statusResponse renders a live job snapshot for the status endpoint.
func statusResponse(snap model.JobSnapshot) gin.H {
	resp := gin.H{
		"id":           snap.ID,
		"domain":       snap.Domain,
		"status":       snap.Status,
		"visitedCount": snap.Stats.Visited,
		"budgetCapped": snap.BudgetCapped,
		"stats": gin.H{
			"discovered": snap.Stats.Discovered,
			"visited":    snap.Stats.Visited,
			"failed":     snap.Stats.Failed,
		},
	}
	if snap.ErrorMessage != "" {
		resp["error"] = snap.ErrorMessage
	}
	return resp
}

// recordResponse renders a persisted job for the status endpoint.
func recordResponse(rec *database.JobRecord) gin.H {
	resp := gin.H{
		"id":           rec.ID,
		"domain":       rec.Domain,
		"status":       rec.Status,
		"visitedCount": rec.Visited,
		"budgetCapped": rec.BudgetCapped,
		"stats": gin.H{
			"discovered": rec.Discovered,
			"visited":    rec.Visited,
			"failed":     rec.Failed,
		},
	}
	if rec.ErrorMessage != "" {
		resp["error"] = rec.ErrorMessage
	}
	return resp
}

// urlListRenderer streams a URL list in the result file format.
type urlListRenderer struct {
	urls []string
}

func (r urlListRenderer) Render(w http.ResponseWriter) error {
	return report.WriteURLList(w, r.urls)
}

func (r urlListRenderer) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
}

package crawler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
	"github.com/SiddharthSanch/product-discoverer/internal/render"
)

// Progress is called periodically with crawl counters so a running job
// can be observed from outside. Calls may come from any worker.
type Progress func(stats model.CrawlStats)

// Result is the outcome of one domain crawl.
type Result struct {
	// Visited holds the canonical URLs that were successfully rendered,
	// sorted lexicographically.
	Visited []string

	// Capped is true when the page budget or the wall-clock budget cut
	// the traversal short.
	Capped bool

	// Stats holds the final crawl counters.
	Stats model.CrawlStats
}

// Crawler runs the breadth-first traversal of one domain.
type Crawler struct {
	// renderer turns URLs into settled page snapshots.
	renderer render.Renderer

	// policy decides URL identity and membership.
	policy *Policy

	// workers is the number of concurrent render pipelines.
	workers int

	// maxDepth limits traversal depth. Zero means unlimited.
	maxDepth int

	// maxPages is the page budget handed to the frontier.
	maxPages int

	// retryCount is how many times a failed render is retried.
	retryCount int

	// retryWait is the base backoff between retries; it doubles per
	// attempt.
	retryWait time.Duration

	// progress, when set, receives counter updates.
	progress Progress

	// logger receives per-page debug output.
	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithWorkers sets the number of concurrent render pipelines.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		c.workers = n
	}
}

// WithMaxDepth limits traversal depth from the seed. Zero means
// unlimited.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		c.maxDepth = depth
	}
}

// WithMaxPages sets the page budget.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		c.maxPages = n
	}
}

// WithRetry sets the retry count and base backoff for failed renders.
func WithRetry(count int, wait time.Duration) Option {
	return func(c *Crawler) {
		c.retryCount = count
		c.retryWait = wait
	}
}

// WithProgress registers a progress callback.
func WithProgress(p Progress) Option {
	return func(c *Crawler) {
		c.progress = p
	}
}

// WithLogger sets the logger for per-page output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler over the given renderer and policy.
func New(renderer render.Renderer, policy *Policy, opts ...Option) *Crawler {
	c := &Crawler{
		renderer:   renderer,
		policy:     policy,
		workers:    5,
		maxPages:   500,
		retryCount: 1,
		retryWait:  time.Second,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run crawls outward from the seed URL until the frontier is exhausted
// or a budget fires. The wall-clock budget is the context deadline:
// when ctx is cancelled the frontier closes and workers finish their
// current page, so the partial result is still returned.
func (c *Crawler) Run(ctx context.Context, seedURL string) (*Result, error) {
	seed, err := c.policy.Canonicalize(seedURL)
	if err != nil {
		return nil, err
	}

	frontier := NewFrontier(c.maxPages)
	frontier.TryEnqueue(seed, 0)

	// Cancellation, including the wall-clock deadline, closes the
	// frontier so blocked workers wake up.
	unblock := context.AfterFunc(ctx, frontier.Close)
	defer unblock()

	var (
		mu      sync.Mutex
		visited []string
		failed  int
	)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				entry, ok := frontier.Dequeue()
				if !ok {
					return
				}
				c.visit(ctx, frontier, entry, func(url string, ok bool) {
					mu.Lock()
					if ok {
						visited = append(visited, url)
					} else {
						failed++
					}
					discovered := frontier.SeenCount()
					stats := model.CrawlStats{
						Discovered: discovered,
						Visited:    len(visited),
						Failed:     failed,
					}
					mu.Unlock()
					if c.progress != nil {
						c.progress(stats)
					}
				})
				frontier.MarkDone()
			}
		}()
	}
	wg.Wait()

	sort.Strings(visited)

	capped := frontier.Capped() || ctx.Err() != nil
	return &Result{
		Visited: visited,
		Capped:  capped,
		Stats: model.CrawlStats{
			Discovered: frontier.SeenCount(),
			Visited:    len(visited),
			Failed:     failed,
		},
	}, nil
}

// visit renders one frontier entry and feeds its links back into the
// frontier. The record callback reports whether the page rendered.
func (c *Crawler) visit(ctx context.Context, frontier *Frontier, entry Entry, record func(url string, ok bool)) {
	snap, err := c.renderWithRetry(ctx, entry.URL)
	if err != nil || !snap.OK() {
		c.logger.Debug("page failed", "url", entry.URL, "error", err)
		record(entry.URL, false)
		return
	}

	c.logger.Debug("page rendered", "url", entry.URL, "depth", entry.Depth, "scrolls", snap.Scrolls)
	record(entry.URL, true)

	// Depth limit: links found at the limit are not expanded.
	if c.maxDepth > 0 && entry.Depth >= c.maxDepth {
		return
	}

	links, err := ExtractLinks(entry.URL, snap.HTML)
	if err != nil {
		c.logger.Debug("link extraction failed", "url", entry.URL, "error", err)
		return
	}

	for _, link := range links {
		canonical, err := c.policy.Canonicalize(link)
		if err != nil {
			continue
		}
		frontier.TryEnqueue(canonical, entry.Depth+1)
	}
}

// renderWithRetry renders a URL, retrying transient failures with
// doubling backoff. Retries stop immediately on context cancellation;
// a page that fails because the crawl is shutting down is not worth
// another attempt.
func (c *Crawler) renderWithRetry(ctx context.Context, url string) (*model.PageSnapshot, error) {
	var snap *model.PageSnapshot
	var err error

	wait := c.retryWait
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return snap, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		snap, err = c.renderer.Render(ctx, url)
		if err == nil && snap.OK() {
			return snap, nil
		}
		if ctx.Err() != nil {
			return snap, ctx.Err()
		}
	}

	return snap, err
}

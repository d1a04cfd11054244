package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// fakeRenderer serves pages from an in-memory site map and records
// concurrency, so crawls run without a browser or network.
type fakeRenderer struct {
	mu sync.Mutex

	// pages maps canonical URL to the HTML served for it.
	pages map[string]string

	// failures lists URLs whose render always fails.
	failures map[string]bool

	// failOnce lists URLs that fail on the first attempt only.
	failOnce map[string]int

	// active and maxActive observe renderer concurrency.
	active    int
	maxActive int

	// delay simulates render latency.
	delay time.Duration
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		pages:    make(map[string]string),
		failures: make(map[string]bool),
		failOnce: make(map[string]int),
	}
}

// page registers a URL whose HTML links to the given hrefs.
func (f *fakeRenderer) page(url string, hrefs ...string) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<a href=%q>link</a>`, href)
	}
	b.WriteString("</body></html>")
	f.pages[url] = b.String()
}

func (f *fakeRenderer) Render(ctx context.Context, url string) (*model.PageSnapshot, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(f.delay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--

	if ctx.Err() != nil {
		return &model.PageSnapshot{URL: url, Outcome: model.OutcomeFailed}, ctx.Err()
	}
	if f.failures[url] {
		return &model.PageSnapshot{URL: url, Outcome: model.OutcomeFailed}, fmt.Errorf("render failed")
	}
	if n := f.failOnce[url]; n > 0 {
		f.failOnce[url] = n - 1
		return &model.PageSnapshot{URL: url, Outcome: model.OutcomeFailed}, fmt.Errorf("transient failure")
	}

	html, ok := f.pages[url]
	if !ok {
		return &model.PageSnapshot{URL: url, Outcome: model.OutcomeFailed}, fmt.Errorf("no such page")
	}
	return &model.PageSnapshot{URL: url, HTML: html, Outcome: model.OutcomeOK}, nil
}

func (f *fakeRenderer) Close() error { return nil }

func newTestCrawler(t *testing.T, r *fakeRenderer, opts ...Option) *Crawler {
	t.Helper()

	policy, err := NewPolicy("https://www.example.com", nil)
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}
	base := []Option{WithRetry(0, time.Millisecond)}
	return New(r, policy, append(base, opts...)...)
}

// TestCrawlerRun tests the full traversal behavior.
func TestCrawlerRun(t *testing.T) {
	t.Parallel()

	t.Run("visits every reachable page once", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer()
		// A diamond: both /a and /b link to /c, which must render once.
		r.page("https://www.example.com/", "/a", "/b")
		r.page("https://www.example.com/a", "/c")
		r.page("https://www.example.com/b", "/c", "/")
		r.page("https://www.example.com/c")

		c := newTestCrawler(t, r)
		result, err := c.Run(context.Background(), "https://www.example.com/")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if len(result.Visited) != 4 {
			t.Errorf("visited %v, want 4 pages", result.Visited)
		}
		if result.Capped {
			t.Error("small site should not be capped")
		}
		if result.Stats.Discovered != 4 {
			t.Errorf("Discovered = %d, want 4", result.Stats.Discovered)
		}
	})

	t.Run("path-less seed and root link are one page", func(t *testing.T) {
		t.Parallel()

		// Reachability probes hand over the seed without a path while
		// storefront navigation links back to "/"; both must map to the
		// same frontier key or the root renders twice.
		r := newFakeRenderer()
		r.page("https://www.example.com/", "/")

		c := newTestCrawler(t, r)
		result, err := c.Run(context.Background(), "https://www.example.com")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if len(result.Visited) != 1 {
			t.Errorf("visited %v, want the root exactly once", result.Visited)
		}
		if len(result.Visited) == 1 && result.Visited[0] != "https://www.example.com/" {
			t.Errorf("root canonical form = %q, want %q", result.Visited[0], "https://www.example.com/")
		}
	})

	t.Run("result is sorted", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer()
		r.page("https://www.example.com/", "/z", "/a", "/m")
		r.page("https://www.example.com/z")
		r.page("https://www.example.com/a")
		r.page("https://www.example.com/m")

		c := newTestCrawler(t, r, WithWorkers(4))
		result, err := c.Run(context.Background(), "https://www.example.com/")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		for i := 1; i < len(result.Visited); i++ {
			if result.Visited[i-1] >= result.Visited[i] {
				t.Fatalf("result not sorted: %v", result.Visited)
			}
		}
	})

	t.Run("page budget caps the crawl", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer()
		// A hub linking to far more pages than the budget allows.
		hrefs := make([]string, 100)
		for i := range hrefs {
			hrefs[i] = fmt.Sprintf("/p/%d", i)
			r.page(fmt.Sprintf("https://www.example.com/p/%d", i))
		}
		r.page("https://www.example.com/", hrefs...)

		c := newTestCrawler(t, r, WithMaxPages(5), WithWorkers(3))
		result, err := c.Run(context.Background(), "https://www.example.com/")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if len(result.Visited) != 5 {
			t.Errorf("visited %d pages, want exactly 5", len(result.Visited))
		}
		if !result.Capped {
			t.Error("expected budget-capped result")
		}
	})

	t.Run("failed page does not fail the crawl", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer()
		r.page("https://www.example.com/", "/good", "/bad")
		r.page("https://www.example.com/good")
		r.failures["https://www.example.com/bad"] = true

		c := newTestCrawler(t, r)
		result, err := c.Run(context.Background(), "https://www.example.com/")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if len(result.Visited) != 2 {
			t.Errorf("visited %v, want the 2 good pages", result.Visited)
		}
		for _, u := range result.Visited {
			if strings.HasSuffix(u, "/bad") {
				t.Errorf("failed page %q must not appear in the result", u)
			}
		}
		if result.Stats.Failed != 1 {
			t.Errorf("Failed = %d, want 1", result.Stats.Failed)
		}
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer()
		r.page("https://www.example.com/", "/flaky")
		r.page("https://www.example.com/flaky")
		r.failOnce["https://www.example.com/flaky"] = 1

		c := newTestCrawler(t, r, WithRetry(2, time.Millisecond))
		result, err := c.Run(context.Background(), "https://www.example.com/")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if len(result.Visited) != 2 {
			t.Errorf("visited %v, want flaky page to succeed on retry", result.Visited)
		}
	})

	t.Run("depth limit stops expansion", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer()
		r.page("https://www.example.com/", "/d1")
		r.page("https://www.example.com/d1", "/d2")
		r.page("https://www.example.com/d2", "/d3")
		r.page("https://www.example.com/d3")

		c := newTestCrawler(t, r, WithMaxDepth(1))
		result, err := c.Run(context.Background(), "https://www.example.com/")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		// Depth 0 is the seed, depth 1 is /d1; /d2 is never enqueued.
		if len(result.Visited) != 2 {
			t.Errorf("visited %v, want seed and depth-1 page only", result.Visited)
		}
	})

	t.Run("worker count bounds renderer concurrency", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer()
		r.delay = 10 * time.Millisecond
		hrefs := make([]string, 20)
		for i := range hrefs {
			hrefs[i] = fmt.Sprintf("/p/%d", i)
			r.page(fmt.Sprintf("https://www.example.com/p/%d", i))
		}
		r.page("https://www.example.com/", hrefs...)

		c := newTestCrawler(t, r, WithWorkers(3))
		if _, err := c.Run(context.Background(), "https://www.example.com/"); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if r.maxActive > 3 {
			t.Errorf("renderer concurrency reached %d, want at most 3", r.maxActive)
		}
	})

	t.Run("wall-clock budget returns partial result", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer()
		r.delay = 20 * time.Millisecond
		hrefs := make([]string, 50)
		for i := range hrefs {
			hrefs[i] = fmt.Sprintf("/p/%d", i)
			r.page(fmt.Sprintf("https://www.example.com/p/%d", i))
		}
		r.page("https://www.example.com/", hrefs...)

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
		defer cancel()

		c := newTestCrawler(t, r, WithWorkers(2))
		result, err := c.Run(ctx, "https://www.example.com/")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if len(result.Visited) == 0 {
			t.Error("expected at least the seed in the partial result")
		}
		if len(result.Visited) >= 50 {
			t.Error("deadline should have cut the crawl short")
		}
		if !result.Capped {
			t.Error("deadline expiry must mark the result capped")
		}
	})

	t.Run("progress callback observes counters", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer()
		r.page("https://www.example.com/", "/a")
		r.page("https://www.example.com/a")

		var calls atomic.Int64
		c := newTestCrawler(t, r, WithProgress(func(stats model.CrawlStats) {
			calls.Add(1)
			if stats.Visited > stats.Discovered {
				t.Errorf("visited %d exceeds discovered %d", stats.Visited, stats.Discovered)
			}
		}))

		if _, err := c.Run(context.Background(), "https://www.example.com/"); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("progress called %d times, want 2", calls.Load())
		}
	})

	t.Run("seed outside policy fails", func(t *testing.T) {
		t.Parallel()

		c := newTestCrawler(t, newFakeRenderer())
		if _, err := c.Run(context.Background(), "ftp://www.example.com/"); err == nil {
			t.Error("expected error for seed the policy rejects")
		}
	})
}

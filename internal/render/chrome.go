package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// ChromeRenderer renders pages in a shared headless Chrome instance.
// Each Render call opens a fresh tab so concurrent renders do not share
// page state, while the browser process itself is reused across the
// whole crawl.
//
// Design decision: One browser with many tabs rather than one browser
// per render. Chrome startup costs seconds; tab creation costs
// milliseconds, and a crawl renders hundreds of pages.
type ChromeRenderer struct {
	// allocCtx is the shared browser allocator context.
	allocCtx context.Context

	// allocCancel tears down the allocator and the browser process.
	allocCancel context.CancelFunc

	// loadTimeout bounds a single navigation including initial scripts.
	loadTimeout time.Duration

	// maxScrolls caps scroll iterations per page.
	maxScrolls int

	// scrollWait is the settle interval between scroll and measurement.
	scrollWait time.Duration

	// userAgent overrides the browser User-Agent when non-empty.
	userAgent string

	// extraHeaders are sent with every request, typically a session
	// cookie or locale selector from the per-site config.
	extraHeaders map[string]string
}

// ChromeOption configures a ChromeRenderer.
type ChromeOption func(*ChromeRenderer)

// WithLoadTimeout sets the per-page navigation timeout.
func WithLoadTimeout(d time.Duration) ChromeOption {
	return func(r *ChromeRenderer) {
		r.loadTimeout = d
	}
}

// WithScrolls sets the scroll cap and the settle interval between scrolls.
func WithScrolls(maxScrolls int, wait time.Duration) ChromeOption {
	return func(r *ChromeRenderer) {
		r.maxScrolls = maxScrolls
		r.scrollWait = wait
	}
}

// WithChromeUserAgent sets a custom User-Agent for the browser.
func WithChromeUserAgent(ua string) ChromeOption {
	return func(r *ChromeRenderer) {
		r.userAgent = ua
	}
}

// WithChromeHeaders sets extra HTTP headers sent with every request,
// e.g. a session cookie that dismisses a consent wall.
func WithChromeHeaders(headers map[string]string) ChromeOption {
	return func(r *ChromeRenderer) {
		r.extraHeaders = headers
	}
}

// NewChromeRenderer launches a headless Chrome instance.
// The returned renderer is safe for concurrent use; callers must Close
// it to shut the browser down.
func NewChromeRenderer(ctx context.Context, opts ...ChromeOption) (*ChromeRenderer, error) {
	r := &ChromeRenderer{
		loadTimeout: 30 * time.Second,
		maxScrolls:  5,
		scrollWait:  1500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(r)
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	if r.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(r.userAgent))
	}

	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)

	// Start the browser eagerly so a missing Chrome binary fails here
	// rather than on the first page of the crawl.
	probeCtx, probeCancel := chromedp.NewContext(r.allocCtx)
	defer probeCancel()
	if err := chromedp.Run(probeCtx); err != nil {
		r.allocCancel()
		return nil, fmt.Errorf("failed to start headless browser: %w", err)
	}

	return r, nil
}

// Render opens a new tab, navigates to the URL, performs scroll
// acquisition, and captures the settled HTML.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (*model.PageSnapshot, error) {
	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx)
	defer tabCancel()

	// Honor both the caller's deadline and the per-page load timeout.
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, r.loadTimeout)
	defer timeoutCancel()

	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	if len(r.extraHeaders) > 0 {
		headers := make(network.Headers, len(r.extraHeaders))
		for k, v := range r.extraHeaders {
			headers[k] = v
		}
		if err := chromedp.Run(tabCtx, network.Enable(), network.SetExtraHTTPHeaders(headers)); err != nil {
			return &model.PageSnapshot{URL: url, Outcome: model.OutcomeFailed},
				fmt.Errorf("%w: %s: %v", ErrRenderFailed, url, err)
		}
	}

	return renderPage(tabCtx, &chromeSession{}, url, r.maxScrolls, r.scrollWait)
}

// Close shuts down the browser process.
func (r *ChromeRenderer) Close() error {
	r.allocCancel()
	return nil
}

// chromeSession implements session on top of a chromedp tab context.
type chromeSession struct{}

func (s *chromeSession) navigate(ctx context.Context, url string) (int, error) {
	// Navigate alone reports only net-level failures; the response
	// carries the HTTP status of the document request.
	resp, err := chromedp.RunResponse(ctx, chromedp.Navigate(url))
	if err != nil {
		return 0, err
	}
	if resp == nil {
		return 0, nil
	}
	return int(resp.Status), nil
}

func (s *chromeSession) scrollToBottom(ctx context.Context) error {
	return chromedp.Run(ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
	)
}

func (s *chromeSession) pageHeight(ctx context.Context) (int64, error) {
	var height int64
	err := chromedp.Run(ctx,
		chromedp.Evaluate(`document.body.scrollHeight`, &height),
	)
	return height, err
}

func (s *chromeSession) html(ctx context.Context) (string, error) {
	var html string
	err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html))
	return html, err
}

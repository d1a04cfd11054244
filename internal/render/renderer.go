package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// ErrRenderFailed is returned when a page could not be rendered.
var ErrRenderFailed = errors.New("render failed")

// Renderer turns a URL into a settled page snapshot.
//
// Design decision: We use an interface rather than a concrete type because:
//  1. Browser and plain-HTTP rendering are vastly different implementations
//  2. Allows for easy mocking in tests
//  3. The crawler can treat all renderers uniformly
type Renderer interface {
	// Render navigates to the URL and returns the settled HTML.
	// Implementations must respect context cancellation.
	Render(ctx context.Context, url string) (*model.PageSnapshot, error)

	// Close releases resources held by the renderer.
	Close() error
}

// session is one page-rendering conversation with a browser.
// The navigate-scroll-capture sequence is written against this narrow
// interface so it can be tested without a browser.
type session interface {
	// navigate loads the URL and returns the terminal HTTP status, or
	// zero when the navigation produced no response.
	navigate(ctx context.Context, url string) (int, error)
	scrollToBottom(ctx context.Context) error
	pageHeight(ctx context.Context) (int64, error)
	html(ctx context.Context) (string, error)
}

// renderPage drives one navigate-scroll-capture sequence on an open
// session. An error page loads like any other, so the terminal status
// is checked here; a 404 or 500 must not contribute links or land in
// the result set.
func renderPage(ctx context.Context, s session, url string, maxScrolls int, wait time.Duration) (*model.PageSnapshot, error) {
	status, err := s.navigate(ctx, url)
	if err != nil {
		return &model.PageSnapshot{URL: url, Outcome: model.OutcomeFailed},
			fmt.Errorf("%w: %s: %v", ErrRenderFailed, url, err)
	}

	if status >= http.StatusBadRequest {
		return &model.PageSnapshot{URL: url, StatusCode: status, Outcome: model.OutcomeFailed},
			fmt.Errorf("%w: %s: status %d", ErrRenderFailed, url, status)
	}

	// A page that navigated but stalled mid-scroll still has usable
	// content, so scroll errors are not fatal; capture what is attached.
	scrolls, _ := scrollAcquire(ctx, s, maxScrolls, wait)

	html, err := s.html(ctx)
	if err != nil {
		return &model.PageSnapshot{URL: url, StatusCode: status, Outcome: model.OutcomeFailed},
			fmt.Errorf("%w: %s: %v", ErrRenderFailed, url, err)
	}

	return &model.PageSnapshot{
		URL:        url,
		HTML:       html,
		StatusCode: status,
		Scrolls:    scrolls,
		Outcome:    model.OutcomeOK,
	}, nil
}

// scrollAcquire runs the incremental scroll loop on an open session and
// returns the number of scrolls performed.
//
// The loop stops as soon as a scroll produces no height growth, so a
// page whose content grows k times settles after k+1 iterations
// regardless of the cap.
func scrollAcquire(ctx context.Context, s session, maxScrolls int, wait time.Duration) (int, error) {
	if maxScrolls <= 0 {
		return 0, nil
	}

	lastHeight, err := s.pageHeight(ctx)
	if err != nil {
		return 0, err
	}

	scrolls := 0
	for scrolls < maxScrolls {
		if err := s.scrollToBottom(ctx); err != nil {
			return scrolls, err
		}
		scrolls++

		// Give lazy loaders time to fetch and attach content.
		select {
		case <-ctx.Done():
			return scrolls, ctx.Err()
		case <-time.After(wait):
		}

		height, err := s.pageHeight(ctx)
		if err != nil {
			return scrolls, err
		}
		if height == lastHeight {
			break
		}
		lastHeight = height
	}

	return scrolls, nil
}

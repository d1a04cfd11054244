package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// StaticRenderer fetches pages with a plain HTTP client.
// It is used for domains configured with rendering disabled, where the
// server returns complete markup and a browser would only add cost.
// No scroll acquisition is performed; lazy-loaded content that requires
// JavaScript will be missing from the snapshot.
type StaticRenderer struct {
	// client is the HTTP client used for fetches.
	client *http.Client

	// userAgent is the User-Agent header to use for requests.
	userAgent string

	// maxBodySize limits the response body size to prevent memory
	// exhaustion. Default is 10MB.
	maxBodySize int64

	// extraHeaders are sent with every request.
	extraHeaders map[string]string
}

// StaticOption configures a StaticRenderer.
type StaticOption func(*StaticRenderer)

// WithStaticClient sets a custom HTTP client.
func WithStaticClient(client *http.Client) StaticOption {
	return func(r *StaticRenderer) {
		r.client = client
	}
}

// WithStaticUserAgent sets a custom User-Agent header.
func WithStaticUserAgent(ua string) StaticOption {
	return func(r *StaticRenderer) {
		r.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) StaticOption {
	return func(r *StaticRenderer) {
		r.maxBodySize = size
	}
}

// WithStaticHeaders sets extra HTTP headers sent with every request.
func WithStaticHeaders(headers map[string]string) StaticOption {
	return func(r *StaticRenderer) {
		r.extraHeaders = headers
	}
}

// NewStaticRenderer creates a plain-HTTP renderer.
func NewStaticRenderer(opts ...StaticOption) *StaticRenderer {
	r := &StaticRenderer{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent:   "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
		maxBodySize: 10 * 1024 * 1024, // 10MB
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render fetches the URL and returns the raw HTML as the snapshot.
func (r *StaticRenderer) Render(ctx context.Context, url string) (*model.PageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &model.PageSnapshot{URL: url, Outcome: model.OutcomeFailed},
			fmt.Errorf("%w: %s: %v", ErrRenderFailed, url, err)
	}

	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range r.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &model.PageSnapshot{URL: url, Outcome: model.OutcomeFailed},
			fmt.Errorf("%w: %s: %v", ErrRenderFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &model.PageSnapshot{URL: url, StatusCode: resp.StatusCode, Outcome: model.OutcomeFailed},
			fmt.Errorf("%w: %s: status %d", ErrRenderFailed, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize))
	if err != nil {
		return &model.PageSnapshot{URL: url, StatusCode: resp.StatusCode, Outcome: model.OutcomeFailed},
			fmt.Errorf("%w: %s: %v", ErrRenderFailed, url, err)
	}

	return &model.PageSnapshot{
		URL:        url,
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		Outcome:    model.OutcomeOK,
	}, nil
}

// Close implements Renderer. The static renderer holds no resources.
func (r *StaticRenderer) Close() error {
	return nil
}

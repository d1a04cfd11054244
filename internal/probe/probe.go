package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnreachable is returned when a target does not answer the probe
// request with a usable status.
var ErrUnreachable = errors.New("target unreachable")

// Checker verifies that crawl targets are reachable.
//
// Design decision: We use a struct with the http.Client rather than
// passing the client on each call because:
//  1. Client configuration (timeouts, redirects) should be consistent
//  2. Connection pooling works better with a shared client
//  3. Easier to test with a mock transport
type Checker struct {
	// client is the HTTP client used for probe requests.
	client *http.Client

	// userAgent is the User-Agent header to use for requests.
	// Default simulates a standard browser; many storefronts answer
	// differently to obvious bot agents.
	userAgent string

	// timeout is the per-probe timeout.
	timeout time.Duration
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithHTTPClient sets a custom HTTP client.
// Tests use this to point the prober at an httptest server.
func WithHTTPClient(client *http.Client) CheckerOption {
	return func(c *Checker) {
		c.client = client
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) CheckerOption {
	return func(c *Checker) {
		c.userAgent = ua
	}
}

// WithTimeout sets the per-probe timeout.
func WithTimeout(timeout time.Duration) CheckerOption {
	return func(c *Checker) {
		c.timeout = timeout
	}
}

// NewChecker creates a Checker with sensible defaults.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		client:    &http.Client{},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
		timeout:   15 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// EnsureURL normalizes a user-supplied target to a seed URL.
// A missing scheme becomes https, and a bare apex host gets the www.
// prefix, matching what most storefronts redirect to anyway.
// Hosts that already carry a subdomain are left alone.
func EnsureURL(target string) string {
	target = strings.TrimSpace(target)
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return target
	}

	host := u.Hostname()
	if !strings.HasPrefix(host, "www.") && strings.Count(host, ".") == 1 {
		u.Host = "www." + u.Host
	}

	return u.String()
}

// Check normalizes the target and verifies it answers an HTTP request.
// It returns the seed URL to crawl from, or ErrUnreachable wrapped with
// the reason.
//
// Design decision: HEAD first, falling back to GET when the server
// rejects HEAD outright. Some storefront CDNs answer HEAD with 405 or
// 403 while serving GET normally, and a false negative here cancels the
// whole job.
func (c *Checker) Check(ctx context.Context, target string) (string, error) {
	seed := EnsureURL(target)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, err := c.request(ctx, http.MethodHead, seed)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusForbidden) {
		status, err = c.request(ctx, http.MethodGet, seed)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreachable, target, err)
	}
	if status >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: %s: status %d", ErrUnreachable, target, status)
	}

	return seed, nil
}

func (c *Checker) request(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

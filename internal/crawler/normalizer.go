package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Normalization reject reasons. Callers that only care whether a URL
// survived can treat any error as a rejection; the distinct sentinels
// exist for debug logging and tests.
var (
	// ErrUnsupportedScheme is returned for non-http(s) URLs.
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	// ErrOffDomain is returned for URLs outside the crawl domain.
	ErrOffDomain = errors.New("outside crawl domain")

	// ErrDeniedExtension is returned for asset URLs (images, scripts,
	// archives) that can never be product pages.
	ErrDeniedExtension = errors.New("denied file extension")

	// ErrExcludedPath is returned for paths matching an exclude pattern.
	ErrExcludedPath = errors.New("excluded path")
)

// Policy decides which URLs belong to a crawl and reduces every
// accepted URL to a single canonical form.
//
// Canonicalization is deterministic and idempotent: the same input
// always yields the same output, and canonicalizing a canonical URL
// returns it unchanged. The frontier's exactly-once guarantee depends
// on both properties.
type Policy struct {
	// host is the seed host, lowercased, without the www. prefix.
	host string

	// allowSubdomains extends the domain check to subdomains of host.
	allowSubdomains bool

	// deniedExtensions are lowercase path suffixes to reject.
	deniedExtensions []string

	// trackingParams are query parameters stripped during canonicalization.
	trackingParams []string

	// excludePatterns are compiled regexps matched against the URL path.
	excludePatterns []*regexp.Regexp
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithAllowSubdomains extends the same-domain check to subdomains.
func WithAllowSubdomains(allow bool) PolicyOption {
	return func(p *Policy) {
		p.allowSubdomains = allow
	}
}

// WithDeniedExtensions sets the path extensions to reject.
func WithDeniedExtensions(exts []string) PolicyOption {
	return func(p *Policy) {
		p.deniedExtensions = make([]string, 0, len(exts))
		for _, ext := range exts {
			p.deniedExtensions = append(p.deniedExtensions, strings.ToLower(ext))
		}
	}
}

// WithTrackingParams sets the query parameters stripped during
// canonicalization.
func WithTrackingParams(params []string) PolicyOption {
	return func(p *Policy) {
		p.trackingParams = params
	}
}

// NewPolicy creates a Policy for the domain of the given seed URL.
// Exclude patterns are compiled here so an invalid pattern fails the
// job before any page is fetched.
func NewPolicy(seedURL string, excludePatterns []string, opts ...PolicyOption) (*Policy, error) {
	u, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL %q: %w", seedURL, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("seed URL %q has no host", seedURL)
	}

	p := &Policy{
		host: strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."),
	}

	for _, pattern := range excludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		p.excludePatterns = append(p.excludePatterns, re)
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Host returns the crawl domain without the www. prefix.
func (p *Policy) Host() string {
	return p.host
}

// Canonicalize reduces an absolute URL to its canonical form, or
// returns the reason it does not belong to the crawl.
//
// The canonical form lowercases the scheme and host, strips the
// fragment, default ports, tracking parameters and a trailing slash,
// and re-encodes the query with sorted keys so that parameter order
// never distinguishes two URLs.
func (p *Policy) Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("unparseable URL %q: %w", rawURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	u.Scheme = scheme

	host := strings.ToLower(u.Hostname())
	if !p.sameDomain(host) {
		return "", fmt.Errorf("%w: %s", ErrOffDomain, host)
	}

	// Strip default ports.
	port := u.Port()
	if port == "" || (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		u.Host = host
	} else {
		u.Host = host + ":" + port
	}

	// Fragments identify positions inside one document, never distinct
	// pages.
	u.Fragment = ""
	u.RawFragment = ""

	lowerPath := strings.ToLower(u.Path)
	for _, ext := range p.deniedExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return "", fmt.Errorf("%w: %s", ErrDeniedExtension, ext)
		}
	}

	for _, re := range p.excludePatterns {
		if re.MatchString(u.Path) {
			return "", fmt.Errorf("%w: %s", ErrExcludedPath, u.Path)
		}
	}

	// Drop tracking parameters and re-encode the rest. Values.Encode
	// sorts keys, making parameter order irrelevant.
	if u.RawQuery != "" {
		q := u.Query()
		for _, param := range p.trackingParams {
			q.Del(param)
		}
		u.RawQuery = q.Encode()
	}

	// "https://host" and "https://host/" are the same page; give the
	// path-less form the root slash so the frontier sees one key.
	if u.Path == "" {
		u.Path = "/"
	}

	// A trailing slash on a non-root path is the same page.
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// sameDomain reports whether host belongs to the crawl domain.
// The www. prefix is always treated as the apex host; other subdomains
// require the AllowSubdomains option.
func (p *Policy) sameDomain(host string) bool {
	host = strings.TrimPrefix(host, "www.")
	if host == p.host {
		return true
	}
	if p.allowSubdomains && strings.HasSuffix(host, "."+p.host) {
		return true
	}
	return false
}

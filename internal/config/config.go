package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Traversal limits default to values that keep
// a crawl of a typical e-commerce catalog bounded; all can be raised via CLI
// flags or the per-domain config file.
const (
	// DefaultConcurrency is the number of render pipelines per crawl job.
	// Each worker drives its own headless browser tab, so this is bounded by
	// local memory more than by network capacity.
	DefaultConcurrency = 5

	// DefaultMaxScrolls caps the incremental-scroll iterations per page.
	// Idle detection usually stops scrolling well before this on pages
	// without infinite feeds.
	DefaultMaxScrolls = 5

	// DefaultScrollWait is the settle interval after each scroll before the
	// document height is re-measured. Lazy loaders need time to fetch and
	// attach new content; 1.5s covers most product grids.
	DefaultScrollWait = 1500 * time.Millisecond

	// DefaultMaxPages is the page-count budget per crawl job. Product
	// catalogs routinely generate effectively infinite URL spaces (filters,
	// sorts, pagination), so an explicit budget is a correctness requirement,
	// not a tuning knob.
	DefaultMaxPages = 500

	// DefaultLoadTimeout bounds a single page navigation, including the
	// initial JavaScript execution.
	DefaultLoadTimeout = 30 * time.Second

	// DefaultRetryCount is how many times a failed navigation is retried
	// before the URL is dropped from the traversal.
	DefaultRetryCount = 1

	// DefaultBatchSize is the number of domains crawled concurrently when
	// several are requested at once.
	DefaultBatchSize = 3

	// DefaultServeAddr is the listen address for the HTTP API.
	DefaultServeAddr = ":8080"

	// AppName is used for XDG directory paths and the config file name.
	AppName = "product-discoverer"
)

// DefaultDeniedExtensions lists path extensions that are never product pages.
// Links matching these are rejected during normalization.
func DefaultDeniedExtensions() []string {
	return []string{
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".webp", ".ico",
		".pdf", ".doc", ".docx", ".zip", ".css", ".js", ".mp4", ".webm",
	}
}

// DefaultTrackingParams lists query parameters stripped during URL
// normalization. Two links differing only in these parameters identify the
// same page.
func DefaultTrackingParams() []string {
	return []string{
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
		"gclid", "fbclid", "msclkid", "mc_cid", "mc_eid", "ref", "referrer",
	}
}

// DefaultExcludePatterns lists path regexps for site chrome that never leads
// to product pages: account, support, policy and cart flows.
func DefaultExcludePatterns() []string {
	return []string{
		`(?i)chat|contact|reward|profile|club|write-to-us|return|payment`,
		`(?i)help|service|user-agreement|policies|aboutus|history|blog`,
		`(?i)account|wishlist|viewcart|cart|checkout|login|logout|signin|signup`,
	}
}

// Config holds all options for the discoverer.
type Config struct {
	// Concurrency is the number of concurrent render pipelines per job.
	Concurrency int

	// MaxScrolls caps scroll iterations per page. Zero disables scrolling.
	MaxScrolls int

	// ScrollWait is the settle interval between scroll and height measurement.
	ScrollWait time.Duration

	// MaxPages is the page-count budget per job. Zero means DefaultMaxPages;
	// budgets cannot be disabled because the link graph may be unbounded.
	MaxPages int

	// MaxDepth limits traversal depth from the seed. Zero means unlimited
	// (the page budget still bounds the crawl).
	MaxDepth int

	// Budget is the wall-clock budget per job. Zero disables it.
	Budget time.Duration

	// LoadTimeout bounds a single page navigation.
	LoadTimeout time.Duration

	// RetryCount is the number of retries for a failed navigation.
	RetryCount int

	// Render enables headless-browser rendering. When false, pages are
	// fetched with a plain HTTP client and scroll acquisition is skipped.
	Render bool

	// AllowSubdomains extends the same-domain policy to subdomains of the
	// target host.
	AllowSubdomains bool

	// DeniedExtensions, TrackingParams and ExcludePatterns configure the URL
	// normalization policy. Empty slices fall back to the package defaults.
	DeniedExtensions []string
	TrackingParams   []string
	ExcludePatterns  []string

	// OutputDir is where result files are written.
	// Defaults to the XDG data directory.
	OutputDir string

	// DBDir is the directory for the SQLite job database.
	DBDir string

	// BatchSize is the number of domains crawled concurrently.
	BatchSize int

	// ConfigFilePath is an explicit config file path. If empty, .discoverer
	// is searched for in the working directory and the home directory.
	ConfigFilePath string

	// SiteConfigs holds per-domain overrides loaded from the config file.
	SiteConfigs *File

	// MarkdownSummary enables writing a markdown crawl summary next to the
	// result file.
	MarkdownSummary bool

	// ServeAddr is the HTTP API listen address (serve command only).
	ServeAddr string

	// Targets is the list of domains to crawl (crawl command only).
	Targets []string

	// Verbose enables debug-level logging.
	Verbose bool
}

// NewConfig creates a Config with default values.
//
// Design decision: A constructor instead of zero values because most
// defaults are non-zero, and the constructor doubles as documentation of
// what the defaults are.
func NewConfig() *Config {
	return &Config{
		Concurrency:      DefaultConcurrency,
		MaxScrolls:       DefaultMaxScrolls,
		ScrollWait:       DefaultScrollWait,
		MaxPages:         DefaultMaxPages,
		LoadTimeout:      DefaultLoadTimeout,
		RetryCount:       DefaultRetryCount,
		BatchSize:        DefaultBatchSize,
		Render:           true,
		DeniedExtensions: DefaultDeniedExtensions(),
		TrackingParams:   DefaultTrackingParams(),
		ExcludePatterns:  DefaultExcludePatterns(),
		OutputDir:        XDGDataDir(),
		DBDir:            XDGDataDir(),
		ServeAddr:        DefaultServeAddr,
	}
}

// XDGDataDir returns the XDG data directory for the discoverer.
// On Linux: ~/.local/share/product-discoverer
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the discoverer.
// On Linux: ~/.config/product-discoverer
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
//
// Design decision: Validation happens once after flag parsing rather than at
// each point of use, so a bad invocation fails fast with a clear message.
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxScrolls < 0 {
		return ErrInvalidMaxScrolls
	}
	if c.ScrollWait < 0 {
		return ErrInvalidScrollWait
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.Budget < 0 {
		return ErrInvalidBudget
	}
	if c.LoadTimeout <= 0 {
		return ErrInvalidLoadTimeout
	}
	if c.RetryCount < 0 {
		return ErrInvalidRetryCount
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	return nil
}

// ForDomain returns a copy of the config with per-domain overrides from the
// config file applied. The base config is not modified.
func (c *Config) ForDomain(domain string) Config {
	merged := *c
	if c.SiteConfigs == nil {
		return merged
	}

	site := c.SiteConfigs.GetSiteConfig(domain)
	if site.MaxPages > 0 {
		merged.MaxPages = site.MaxPages
	}
	if site.MaxDepth > 0 {
		merged.MaxDepth = site.MaxDepth
	}
	if site.MaxScrolls > 0 {
		merged.MaxScrolls = site.MaxScrolls
	}
	if site.ScrollWaitMs > 0 {
		merged.ScrollWait = time.Duration(site.ScrollWaitMs) * time.Millisecond
	}
	if site.Render != nil {
		merged.Render = *site.Render
	}
	if site.AllowSubdomains != nil {
		merged.AllowSubdomains = *site.AllowSubdomains
	}
	if len(site.ExcludePatterns) > 0 {
		merged.ExcludePatterns = site.ExcludePatterns
	}
	return merged
}

// SiteHeaders returns the extra HTTP headers for a domain, with the
// configured cookie folded in as a Cookie header. Returns nil when the
// config file sets neither.
func (c *Config) SiteHeaders(domain string) map[string]string {
	if c.SiteConfigs == nil {
		return nil
	}

	site := c.SiteConfigs.GetSiteConfig(domain)
	if site.Cookie == "" && len(site.Headers) == 0 {
		return nil
	}

	headers := make(map[string]string, len(site.Headers)+1)
	for k, v := range site.Headers {
		headers[k] = v
	}
	if site.Cookie != "" {
		headers["Cookie"] = site.Cookie
	}
	return headers
}

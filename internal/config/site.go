package config

// SiteConfig holds per-domain configuration overrides.
// E-commerce platforms vary widely in how aggressive a crawl they tolerate
// and how much lazy loading they do, so the limits that matter are tunable
// per domain.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when crawling this domain, typically
	// to pre-select a store locale or dismiss a consent wall.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this domain.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the global page budget for this domain.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`

	// MaxDepth overrides the global traversal depth for this domain.
	// If zero, the global MaxDepth is used.
	MaxDepth int `yaml:"maxDepth,omitempty"`

	// MaxScrolls overrides the per-page scroll cap for this domain.
	// If zero, the global MaxScrolls is used.
	MaxScrolls int `yaml:"maxScrolls,omitempty"`

	// ScrollWaitMs overrides the scroll settle interval, in milliseconds.
	// If zero, the global ScrollWait is used.
	ScrollWaitMs int `yaml:"scrollWaitMs,omitempty"`

	// Render overrides headless-browser rendering for this domain.
	// If nil, the global Render setting is used.
	Render *bool `yaml:"render,omitempty"`

	// AllowSubdomains overrides the same-domain policy for this domain.
	// If nil, the global AllowSubdomains setting is used.
	AllowSubdomains *bool `yaml:"allowSubdomains,omitempty"`

	// ExcludePatterns replaces the global exclude patterns for this domain.
	// Patterns are regular expressions matched against the URL path.
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`
}

// File represents the structure of the .discoverer configuration file.
type File struct {
	// Sites maps domains to their site-specific configurations.
	// Keys should be the bare host name (e.g., "shop.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all domains
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific domain.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(domain string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with site-specific configuration if present
	if siteConfig, ok := cf.Sites[domain]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if siteConfig.MaxPages != 0 {
			result.MaxPages = siteConfig.MaxPages
		}
		if siteConfig.MaxDepth != 0 {
			result.MaxDepth = siteConfig.MaxDepth
		}
		if siteConfig.MaxScrolls != 0 {
			result.MaxScrolls = siteConfig.MaxScrolls
		}
		if siteConfig.ScrollWaitMs != 0 {
			result.ScrollWaitMs = siteConfig.ScrollWaitMs
		}
		if siteConfig.Render != nil {
			result.Render = siteConfig.Render
		}
		if siteConfig.AllowSubdomains != nil {
			result.AllowSubdomains = siteConfig.AllowSubdomains
		}
		if len(siteConfig.ExcludePatterns) > 0 {
			result.ExcludePatterns = siteConfig.ExcludePatterns
		}
	}

	return result
}

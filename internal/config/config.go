package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ownsearch"

	// DefaultWorkers is the number of concurrent fetch workers.
	DefaultWorkers = 10

	// DefaultTimeout bounds each fetch. Pages that take longer are skipped.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxPages of 0 means the crawl runs until the site is exhausted.
	DefaultMaxPages = 0

	// DefaultMaxBodySize limits the response body size to read (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultRateLimit of 0 means requests are not paced.
	DefaultRateLimit = 0

	// DefaultUserAgent identifies ownsearch in HTTP requests so that site
	// operators can recognize crawler traffic in their logs.
	DefaultUserAgent = "ownsearch/1.0 (+https://github.com/ownsearch/ownsearch)"

	// DefaultIndexFile is the file name of the text index.
	DefaultIndexFile = "text_index.json"
)

// Config holds all options of a crawl.
// It is populated from defaults, the configuration file and CLI flags, and
// passed through the application instead of living in global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable.
type Config struct {
	// SeedURL is the page the crawl starts from. Its host decides which
	// links are internal.
	SeedURL string

	// Workers is the number of pages fetched concurrently.
	Workers int

	// FollowExternal also crawls links that leave the seed's host.
	FollowExternal bool

	// Timeout bounds each fetch, from request to fully read body.
	Timeout time.Duration

	// MaxPages stops the crawl after that many pages. 0 means no limit.
	MaxPages int

	// MaxBodySize is the largest body in bytes that is accepted.
	// 0 means the default.
	MaxBodySize int64

	// RateLimit is the maximum number of requests per second across all
	// workers. 0 means unlimited.
	RateLimit float64

	// UserAgent is the User-Agent header sent with each request.
	UserAgent string

	// ProxyAddress routes requests through a SOCKS5 proxy ("host:port").
	// Empty means direct connections.
	ProxyAddress string

	// Cookie is sent with every request ("name=value; other=value").
	Cookie string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// IgnorePatterns are URL path globs that are never crawled.
	IgnorePatterns []string

	// FollowPatterns, when set, restrict the crawl to matching URL paths.
	FollowPatterns []string

	// IndexPath is the JSON file the text index is stored in.
	// Defaults to the XDG data directory.
	IndexPath string

	// DBDir is the directory of the crawl history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB records runs, pages and skipped URLs in the history database.
	SaveToDB bool

	// JSONReport prints the crawl summary as JSON.
	JSONReport bool

	// MarkdownReport prints the crawl summary as Markdown.
	MarkdownReport bool

	// Verbose enables debug logging. When false, only warnings and errors
	// are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .ownsearch is searched in the current directory and then in
	// the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., workers, timeout).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Workers:     DefaultWorkers,
		Timeout:     DefaultTimeout,
		MaxPages:    DefaultMaxPages,
		MaxBodySize: DefaultMaxBodySize,
		RateLimit:   DefaultRateLimit,
		UserAgent:   DefaultUserAgent,
		Headers:     make(map[string]string),
		IndexPath:   DefaultIndexPath(),
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for ownsearch.
// On Linux: ~/.local/share/ownsearch
// On macOS: ~/Library/Application Support/ownsearch
// On Windows: %LOCALAPPDATA%\ownsearch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ownsearch.
// On Linux: ~/.config/ownsearch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultIndexPath returns the default location of the text index.
func DefaultIndexPath() string {
	return filepath.Join(XDGDataDir(), DefaultIndexFile)
}

// ApplySite copies the non-zero fields of a per-host configuration into c.
// Headers are merged; a site header replaces a global one of the same name.
func (c *Config) ApplySite(site SiteConfig) {
	if site.Cookie != "" {
		c.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			c.Headers[k] = v
		}
	}
	if site.MaxPages > 0 {
		c.MaxPages = site.MaxPages
	}
	if site.RateLimit > 0 {
		c.RateLimit = site.RateLimit
	}
	if len(site.IgnorePatterns) > 0 {
		c.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		c.FollowPatterns = site.FollowPatterns
	}
}

// Validate checks if the configuration is valid for a crawl.
// It returns the first problem found.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any request is made.
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeedURL
	}

	u, err := url.Parse(c.SeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSeedURL
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	// Zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if c.IndexPath == "" {
		return ErrNoIndexPath
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".ownsearch"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// SiteConfig holds overrides for one host. They apply when the seed URL is
// on that host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the global page limit for this site.
	MaxPages int `yaml:"max_pages,omitempty"`

	// RateLimit overrides the global requests-per-second limit.
	RateLimit float64 `yaml:"rate_limit,omitempty"`

	// IgnorePatterns are URL path globs to skip during crawling.
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty"`

	// FollowPatterns are URL path globs to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"follow_patterns,omitempty"`
}

// File represents the structure of the .ownsearch configuration file.
// Zero values mean "not set" and leave the current setting unchanged.
type File struct {
	SeedURL        string            `yaml:"seed_url,omitempty"`
	Workers        int               `yaml:"workers,omitempty"`
	FollowExternal *bool             `yaml:"follow_external,omitempty"`
	Timeout        time.Duration     `yaml:"timeout,omitempty"`
	MaxPages       int               `yaml:"max_pages,omitempty"`
	MaxBodySize    int64             `yaml:"max_body_size,omitempty"`
	RateLimit      float64           `yaml:"rate_limit,omitempty"`
	UserAgent      string            `yaml:"user_agent,omitempty"`
	Proxy          string            `yaml:"proxy,omitempty"`
	Cookie         string            `yaml:"cookie,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	IgnorePatterns []string          `yaml:"ignore_patterns,omitempty"`
	FollowPatterns []string          `yaml:"follow_patterns,omitempty"`
	IndexPath      string            `yaml:"index_path,omitempty"`
	DBDir          string            `yaml:"db_dir,omitempty"`
	SaveHistory    *bool             `yaml:"save_history,omitempty"`

	// Sites maps host names (optionally with port) to per-site overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// ApplyTo copies every value set in the file into cfg.
func (cf *File) ApplyTo(cfg *Config) {
	if cf.SeedURL != "" {
		cfg.SeedURL = cf.SeedURL
	}
	if cf.Workers != 0 {
		cfg.Workers = cf.Workers
	}
	if cf.FollowExternal != nil {
		cfg.FollowExternal = *cf.FollowExternal
	}
	if cf.Timeout != 0 {
		cfg.Timeout = cf.Timeout
	}
	if cf.MaxPages != 0 {
		cfg.MaxPages = cf.MaxPages
	}
	if cf.MaxBodySize != 0 {
		cfg.MaxBodySize = cf.MaxBodySize
	}
	if cf.RateLimit != 0 {
		cfg.RateLimit = cf.RateLimit
	}
	if cf.UserAgent != "" {
		cfg.UserAgent = cf.UserAgent
	}
	if cf.Proxy != "" {
		cfg.ProxyAddress = cf.Proxy
	}
	if cf.IndexPath != "" {
		cfg.IndexPath = cf.IndexPath
	}
	if cf.DBDir != "" {
		cfg.DBDir = cf.DBDir
	}
	if cf.SaveHistory != nil {
		cfg.SaveToDB = *cf.SaveHistory
	}

	cfg.ApplySite(SiteConfig{
		Cookie:         cf.Cookie,
		Headers:        cf.Headers,
		IgnorePatterns: cf.IgnorePatterns,
		FollowPatterns: cf.FollowPatterns,
	})
}

// SiteFor returns the overrides for the host of seedURL. The host is looked
// up with its port first and then without it. A seed with no matching entry
// yields an empty SiteConfig.
func (cf *File) SiteFor(seedURL string) SiteConfig {
	u, err := url.Parse(seedURL)
	if err != nil || u.Host == "" {
		return SiteConfig{}
	}

	if site, ok := cf.Sites[u.Host]; ok {
		return site
	}
	if site, ok := cf.Sites[u.Hostname()]; ok {
		return site
	}
	return SiteConfig{}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .ownsearch in the current directory
// 3. Look for .ownsearch in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

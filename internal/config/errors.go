package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). Callers can use errors.Is()
// while the messages stay readable on the command line.
var (
	// ErrNoSeedURL is returned when neither the command line nor the
	// configuration file names a seed URL.
	ErrNoSeedURL = errors.New("no seed url specified: pass a url or set seed_url in the configuration file")

	// ErrInvalidSeedURL is returned when the seed is not an absolute http or
	// https URL.
	ErrInvalidSeedURL = errors.New("invalid seed url: must be an absolute http or https url")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero would fail every request immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	// Use 0 for no limit.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	// Use 0 for no limit.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrNoIndexPath is returned when no index file location is set.
	ErrNoIndexPath = errors.New("no index path specified")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

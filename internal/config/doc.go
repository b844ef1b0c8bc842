// Package config holds the settings of a crawl and the tools to build them:
// defaults, validation, the optional YAML file, and XDG locations for the
// index and the crawl history.
//
// Settings are resolved in three layers, later layers winning:
//  1. Defaults from NewConfig
//  2. The configuration file (.ownsearch), including per-host overrides
//  3. Command-line flags that were explicitly set
package config

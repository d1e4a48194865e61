// Package config provides configuration structures and utilities for llmsgen.
// It defines the crawl, output, and enhancement options, and loads
// per-site overrides from a YAML configuration file.
package config

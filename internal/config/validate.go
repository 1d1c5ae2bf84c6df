package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/robfig/cron/v3"
)

// CronParser accepts standard five-field expressions and descriptors like @daily.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Source.Path == "" {
		add("source.path is required")
	} else if !filepath.IsAbs(c.Source.Path) {
		add("source.path must be absolute: %q", c.Source.Path)
	}
	if c.Destination.Path == "" {
		add("destination.path is required")
	} else if !filepath.IsAbs(c.Destination.Path) {
		add("destination.path must be absolute: %q", c.Destination.Path)
	}
	if c.Source.Path != "" && c.Destination.Path != "" {
		rel, err := filepath.Rel(c.Source.Path, c.Destination.Path)
		if err == nil && !strings.HasPrefix(rel, "..") {
			add("destination.path must not be inside source.path")
		}
	}
	if c.Destination.Prefix == "" || strings.ContainsAny(c.Destination.Prefix, `/\*?[]{}`) {
		add("destination.prefix must be a plain file name prefix: %q", c.Destination.Prefix)
	}
	if c.Destination.Retention.MaxCount < 1 {
		add("destination.retention.maxCount must be at least 1, got %d", c.Destination.Retention.MaxCount)
	}

	if c.Source.Exclude.MaxDepth < 1 {
		add("source.exclude.maxDepth must be at least 1, got %d", c.Source.Exclude.MaxDepth)
	}
	for _, p := range c.Source.Exclude.Patterns {
		if p == "" || strings.Contains(p, "/") {
			add("source.exclude.patterns: %q must be a single path component", p)
			continue
		}
		if !doublestar.ValidatePattern(p) {
			add("source.exclude.patterns: invalid pattern %q", p)
		}
	}

	if c.Service.Name == "" {
		add("service.name is required")
	}
	switch c.Service.Driver {
	case "api", "cli":
	default:
		add("service.driver must be one of api, cli: %q", c.Service.Driver)
	}
	if c.Service.StopGrace < 0 || c.Service.StartGrace < 0 {
		add("service grace intervals must not be negative")
	}

	switch c.Archive.Engine {
	case "native", "tar":
	default:
		add("archive.engine must be one of native, tar: %q", c.Archive.Engine)
	}
	switch c.Archive.Compression {
	case "gzip", "zstd":
	default:
		add("archive.compression must be one of gzip, zstd: %q", c.Archive.Compression)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level must be one of debug, info, warn, error: %q", c.Logging.Level)
	}
	switch c.Logging.Color {
	case "auto", "always", "never":
	default:
		add("logging.color must be one of auto, always, never: %q", c.Logging.Color)
	}

	if c.Schedule.Cron != "" {
		if _, err := CronParser.Parse(c.Schedule.Cron); err != nil {
			add("schedule.cron: %v", err)
		}
	}
	switch c.ConfigReload.Method {
	case "auto", "fsnotify", "poll":
	default:
		add("configReload.method must be one of auto, fsnotify, poll: %q", c.ConfigReload.Method)
	}
	if c.ConfigReload.Method != "fsnotify" && c.ConfigReload.PollInterval <= 0 {
		add("configReload.pollInterval must be positive")
	}

	if c.Offsite.Enabled && c.Offsite.Bucket == "" {
		add("offsite.bucket is required when offsite.enabled is set")
	}

	return errors.Join(errs...)
}

// RequiredTools lists the executables a run needs on PATH for this configuration.
func (c *Config) RequiredTools() []string {
	var tools []string
	if c.Service.Driver == "cli" {
		tools = append(tools, "docker")
	}
	if c.Archive.Engine == "tar" {
		tools = append(tools, "tar")
		if c.Archive.Compression == "zstd" {
			tools = append(tools, "zstd")
		}
	}
	for _, t := range c.Prerequisites.Tools {
		if t != "" && !slices.Contains(tools, t) {
			tools = append(tools, t)
		}
	}
	return tools
}

package config

import (
	"path/filepath"
	"time"
)

// DefaultExcludes are the media server subtrees that are rebuilt on demand.
var DefaultExcludes = []string{"Cache", "Crash Reports", "Codecs", "Diagnostics"}

// LockFileName is created inside the destination directory unless lock.path is set.
const LockFileName = ".media-backup.lock"

// Defaults returns a configuration with every optional field populated.
func Defaults() *Config {
	return &Config{
		Source: SourceConfig{
			Exclude: ExcludeConfig{
				Patterns: append([]string(nil), DefaultExcludes...),
				MaxDepth: 4,
			},
		},
		Destination: DestinationConfig{
			Prefix:    "backup",
			Retention: RetentionConfig{MaxCount: 7},
		},
		Service: ServiceConfig{
			Driver:         "api",
			StopGrace:      10 * time.Second,
			StartGrace:     15 * time.Second,
			StopTimeout:    30 * time.Second,
			RestartTimeout: 2 * time.Minute,
		},
		Archive: ArchiveConfig{
			Engine:      "native",
			Compression: "gzip",
			MinSize:     1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			Color:      "auto",
			File:       true,
			MaxSizeMB:  50,
			MaxBackups: 5,
		},
		Lock: LockConfig{Enabled: true},
		ConfigReload: ReloadConfig{
			Enabled:        true,
			Method:         "auto",
			PollInterval:   10 * time.Second,
			DebounceWindow: 500 * time.Millisecond,
		},
		Offsite: OffsiteConfig{Region: "us-east-1"},
	}
}

// applyDerived fills fields whose default depends on other fields.
func (c *Config) applyDerived() {
	if c.Logging.Dir == "" {
		c.Logging.Dir = c.Destination.Path
	}
	if c.Lock.Path == "" && c.Destination.Path != "" {
		c.Lock.Path = filepath.Join(c.Destination.Path, LockFileName)
	}
	if c.Offsite.MaxCount <= 0 {
		c.Offsite.MaxCount = c.Destination.Retention.MaxCount
	}
}

package config

import "time"

type Config struct {
	Source        SourceConfig       `yaml:"source"`
	Destination   DestinationConfig  `yaml:"destination"`
	Service       ServiceConfig      `yaml:"service"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Prerequisites PrerequisiteConfig `yaml:"prerequisites"`
	Logging       LoggingConfig      `yaml:"logging"`
	Lock          LockConfig         `yaml:"lock"`
	Schedule      ScheduleConfig     `yaml:"schedule"`
	ConfigReload  ReloadConfig       `yaml:"configReload"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Offsite       OffsiteConfig      `yaml:"offsite"`
}

type SourceConfig struct {
	Path    string        `yaml:"path"`
	Exclude ExcludeConfig `yaml:"exclude"`
}

// ExcludeConfig names subtrees that are regenerable and not worth archiving.
// Patterns use doublestar syntax and are matched against a single path
// component at every depth from 1 to MaxDepth.
type ExcludeConfig struct {
	Patterns []string `yaml:"patterns"`
	MaxDepth int      `yaml:"maxDepth"`
}

type DestinationConfig struct {
	Path      string          `yaml:"path"`
	Prefix    string          `yaml:"prefix"`
	Retention RetentionConfig `yaml:"retention"`
}

type RetentionConfig struct {
	MaxCount int `yaml:"maxCount"`
}

type ServiceConfig struct {
	Name           string        `yaml:"name"`
	Driver         string        `yaml:"driver"` // "api", "cli"
	DockerHost     string        `yaml:"dockerHost"`
	StopGrace      time.Duration `yaml:"stopGrace"`
	StartGrace     time.Duration `yaml:"startGrace"`
	StopTimeout    time.Duration `yaml:"stopTimeout"`
	RestartTimeout time.Duration `yaml:"restartTimeout"`
}

type ArchiveConfig struct {
	Engine      string `yaml:"engine"`      // "native", "tar"
	Compression string `yaml:"compression"` // "gzip", "zstd"
	Level       int    `yaml:"level"`
	MinSize     int64  `yaml:"minSize"`
}

type PrerequisiteConfig struct {
	Tools []string `yaml:"tools"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"` // "debug", "info", "warn", "error"
	Console    bool   `yaml:"console"`
	Color      string `yaml:"color"` // "auto", "always", "never"
	File       bool   `yaml:"file"`
	Dir        string `yaml:"dir"`
	DaemonFile string `yaml:"daemonFile"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

type LockConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ScheduleConfig struct {
	Cron       string `yaml:"cron"`
	RunOnStart bool   `yaml:"runOnStart"`
}

type ReloadConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Method         string        `yaml:"method"` // "auto", "fsnotify", "poll"
	PollInterval   time.Duration `yaml:"pollInterval"`
	DebounceWindow time.Duration `yaml:"debounceWindow"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
	Listen   string `yaml:"listen"`
}

type OffsiteConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	UsePathStyle    bool   `yaml:"usePathStyle"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	MaxCount        int    `yaml:"maxCount"`
}

// Package app assembles media-backup's components from a configuration.
package app

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/raoulx24/media-backup/internal/archive"
	"github.com/raoulx24/media-backup/internal/backup"
	"github.com/raoulx24/media-backup/internal/command"
	"github.com/raoulx24/media-backup/internal/config"
	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/metrics"
	"github.com/raoulx24/media-backup/internal/offsite"
	"github.com/raoulx24/media-backup/internal/prereq"
	"github.com/raoulx24/media-backup/internal/service"
)

// Components is everything a backup run needs, wired for one configuration.
type Components struct {
	Runner     *backup.Runner
	Lifecycle  *service.Lifecycle
	Checker    *prereq.Checker
	Controller service.Controller

	closers []io.Closer
}

// Close releases the container runtime client.
func (c *Components) Close() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// NewController returns the driver selected by service.driver.
func NewController(cfg *config.Config) (service.Controller, io.Closer, error) {
	if cfg.Service.Driver == "cli" {
		return service.NewDockerCLI(command.Exec{}, cfg.Service.StopTimeout), nil, nil
	}
	api, err := service.NewDockerAPI(cfg.Service.DockerHost, cfg.Service.StopTimeout)
	if err != nil {
		return nil, nil, err
	}
	return api, api, nil
}

// NewArchiver returns the engine selected by archive.engine.
func NewArchiver(cfg *config.Config, fsys afero.Fs, log logging.Logger) archive.Archiver {
	a := cfg.Archive
	if a.Engine == "tar" {
		return archive.NewTar(fsys, command.Exec{}, log, a.Compression, a.MinSize)
	}
	return archive.NewNative(fsys, log, a.Compression, a.Level, a.MinSize)
}

// Build wires a runner for cfg. m may be nil.
func Build(ctx context.Context, cfg *config.Config, fsys afero.Fs, log *logging.ZapLogger, m *metrics.Metrics) (*Components, error) {
	ctl, closer, err := NewController(cfg)
	if err != nil {
		return nil, err
	}
	c := &Components{Controller: ctl}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	c.Lifecycle = service.NewLifecycle(ctl, cfg.Service.Name, log,
		service.WithGrace(cfg.Service.StopGrace, cfg.Service.StartGrace),
		service.WithRestartTimeout(cfg.Service.RestartTimeout),
	)
	c.Checker = prereq.New(fsys, ctl, log, command.LookPath)

	opts := []backup.Option{}
	if m != nil {
		opts = append(opts, backup.WithMetrics(m))
	}
	if cfg.Offsite.Enabled {
		client, err := offsite.NewClient(ctx, cfg.Offsite)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		opts = append(opts, backup.WithOffsite(offsite.New(client, fsys, log, cfg.Offsite)))
	}

	c.Runner = backup.New(cfg, fsys, log, c.Lifecycle, NewArchiver(cfg, fsys, log), c.Checker, opts...)
	return c, nil
}

// MetricsFor returns a metrics set when cfg exports metrics, nil otherwise.
func MetricsFor(cfg *config.Config, serve bool) *metrics.Metrics {
	if cfg.Metrics.Textfile == "" && (!serve || cfg.Metrics.Listen == "") {
		return nil
	}
	return metrics.New(cfg.Service.Name)
}

type LogOptions struct {
	// Level overrides logging.level when set.
	Level   string
	NoColor bool
	// Daemon adds the rotated daemon log file when logging.daemonFile is set.
	Daemon bool
}

// NewLogger builds the base logger. The returned closer is never nil.
func NewLogger(cfg *config.Config, console *os.File, opts LogOptions) (*logging.ZapLogger, io.Closer, error) {
	level := cfg.Logging.Level
	if opts.Level != "" {
		level = opts.Level
	}
	colorMode := cfg.Logging.Color
	if opts.NoColor {
		colorMode = "never"
	}

	lo := logging.Options{Level: level}
	if cfg.Logging.Console {
		lo.Console = console
		lo.Color = logging.ColorEnabled(colorMode, console)
	}

	var closer io.Closer = nopCloser{}
	if opts.Daemon && cfg.Logging.DaemonFile != "" {
		f, err := logging.NewRotatingFile(cfg.Logging.DaemonFile, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		lo.File, closer = f, f
	}

	log, err := logging.New(lo)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return log, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

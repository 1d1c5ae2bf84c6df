package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/raoulx24/media-backup/internal/backup"
	"github.com/raoulx24/media-backup/internal/config"
	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/mailbox"
	"github.com/raoulx24/media-backup/internal/metrics"
	"github.com/raoulx24/media-backup/internal/schedule"
	"github.com/raoulx24/media-backup/internal/watcher"
	"github.com/raoulx24/media-backup/internal/worker"
)

// Builder wires a runner for one configuration. The returned close function
// releases whatever the runner holds.
type Builder func(ctx context.Context, cfg *config.Config) (worker.Runner, func() error, error)

// Daemon is serve mode: a cron schedule feeding a single worker through the
// mailbox, with config hot reload and an optional metrics listener.
type Daemon struct {
	path    string
	fs      afero.Fs
	log     *logging.ZapLogger
	metrics *metrics.Metrics
	build   Builder
	mb      *mailbox.Mailbox[worker.Job]

	worker *worker.Worker
	sched  *schedule.Scheduler
	watch  *watcher.Watcher

	// level overrides logging.level across reloads when set
	level string

	mu      sync.Mutex
	cfg     *config.Config
	closers []func() error
}

type DaemonOption func(*Daemon)

// WithLevelOverride pins the log level, ignoring logging.level in the file.
func WithLevelOverride(level string) DaemonOption {
	return func(d *Daemon) { d.level = level }
}

// DefaultBuilder wires runners with Build.
func DefaultBuilder(fsys afero.Fs, log *logging.ZapLogger, m *metrics.Metrics) Builder {
	return func(ctx context.Context, cfg *config.Config) (worker.Runner, func() error, error) {
		c, err := Build(ctx, cfg, fsys, log, m)
		if err != nil {
			return nil, nil, err
		}
		return c.Runner, c.Close, nil
	}
}

func NewDaemon(ctx context.Context, path string, cfg *config.Config, fsys afero.Fs, log *logging.ZapLogger, m *metrics.Metrics, build Builder, opts ...DaemonOption) (*Daemon, error) {
	if cfg.Schedule.Cron == "" {
		return nil, errors.New("serve mode needs schedule.cron")
	}

	d := &Daemon{
		path:    path,
		fs:      fsys,
		log:     log,
		metrics: m,
		build:   build,
		mb:      mailbox.New[worker.Job](),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(d)
	}

	runner, closeFn, err := build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, closeFn)

	d.sched, err = schedule.New(cfg.Schedule.Cron, d.mb, log)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	d.worker = worker.New(runner, log, d.mb, d.afterRun)
	d.watch = watcher.New(path, cfg.ConfigReload, fsys, log, func() {
		if err := d.Reload(ctx); err != nil {
			log.Error("config reload failed, keeping previous configuration", "error", err)
		}
	})
	return d, nil
}

// Run blocks until ctx is done or a component fails.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.close()

	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.worker.Start(ctx) })
	g.Go(func() error { return d.sched.Start(ctx) })
	g.Go(func() error { return d.handleHangup(ctx) })

	if cfg.ConfigReload.Enabled {
		g.Go(func() error { return d.watch.Start(ctx) })
	}
	if d.metrics != nil && cfg.Metrics.Listen != "" {
		g.Go(func() error { return d.metrics.Serve(ctx, cfg.Metrics.Listen, d.log) })
	}

	if cfg.Schedule.RunOnStart {
		d.mb.Put(worker.Job{Trigger: worker.TriggerStartup, At: time.Now()})
	}

	d.log.Info("serving", "service", cfg.Service.Name, "cron", cfg.Schedule.Cron, "config", d.path)
	return g.Wait()
}

// Reload re-reads the config file and applies it. On error the running
// configuration stays in place.
func (d *Daemon) Reload(ctx context.Context) error {
	cfg, err := config.Load(d.path)
	if err != nil {
		return err
	}

	runner, closeFn, err := d.build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building runner: %w", err)
	}
	if cfg.Schedule.Cron == "" {
		_ = closeFn()
		return errors.New("serve mode needs schedule.cron")
	}
	if err := d.sched.Update(cfg.Schedule.Cron); err != nil {
		_ = closeFn()
		return err
	}

	d.mu.Lock()
	old := d.cfg
	d.cfg = cfg
	// the previous runner may still be in use; it is released on shutdown
	d.closers = append(d.closers, closeFn)
	d.mu.Unlock()

	d.worker.UpdateRunner(runner)
	d.watch.UpdateConfig(cfg.ConfigReload)
	level := cfg.Logging.Level
	if d.level != "" {
		level = d.level
	}
	if err := d.log.SetLevel(level); err != nil {
		d.log.Warn("keeping log level", "error", err)
	}
	if old.Metrics.Listen != cfg.Metrics.Listen || old.ConfigReload.Enabled != cfg.ConfigReload.Enabled {
		d.log.Warn("metrics.listen and configReload.enabled take effect after restart")
	}

	d.log.Info("config reloaded", "path", d.path, "cron", cfg.Schedule.Cron)
	return nil
}

func (d *Daemon) afterRun(job worker.Job, res *backup.Result) {
	d.log.Info("run complete",
		"trigger", job.Trigger,
		"success", res.Success(),
		"next", d.sched.Next(),
	)
}

func (d *Daemon) handleHangup(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			d.log.Info("SIGHUP received, reloading config")
			if err := d.Reload(ctx); err != nil {
				d.log.Error("config reload failed, keeping previous configuration", "error", err)
			}
		}
	}
}

func (d *Daemon) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.closers {
		if err := c(); err != nil {
			d.log.Warn("closing runner", "error", err)
		}
	}
	d.closers = nil
}

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/raoulx24/media-backup/internal/archive"
	"github.com/raoulx24/media-backup/internal/config"
	"github.com/raoulx24/media-backup/internal/fs"
	"github.com/raoulx24/media-backup/internal/lock"
	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/metrics"
	"github.com/raoulx24/media-backup/internal/offsite"
	"github.com/raoulx24/media-backup/internal/prereq"
	"github.com/raoulx24/media-backup/internal/retention"
	"github.com/raoulx24/media-backup/internal/service"
	"github.com/raoulx24/media-backup/internal/snapshot"
)

type Checker interface {
	Check(ctx context.Context, spec prereq.Spec) error
}

type Syncer interface {
	Sync(ctx context.Context, archivePath, pattern string) offsite.Result
}

type Releaser interface {
	Release() error
}

// Locker acquires the run lock at path without blocking.
type Locker func(path string) (Releaser, error)

func FileLocker(path string) (Releaser, error) {
	l, err := lock.Acquire(path)
	if err != nil {
		return nil, err
	}
	return l, nil
}

type Runner struct {
	cfg       *config.Config
	fs        afero.Fs
	log       *logging.ZapLogger
	lifecycle *service.Lifecycle
	archiver  archive.Archiver
	checker   Checker
	locker    Locker
	offsite   Syncer
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
}

type Option func(*Runner)

func WithLocker(l Locker) Option { return func(r *Runner) { r.locker = l } }

// WithOffsite enables the offsite copy after pruning.
func WithOffsite(s Syncer) Option { return func(r *Runner) { r.offsite = s } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Runner) { r.metrics = m } }

func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func New(
	cfg *config.Config,
	fsys afero.Fs,
	log *logging.ZapLogger,
	lifecycle *service.Lifecycle,
	archiver archive.Archiver,
	checker Checker,
	opts ...Option,
) *Runner {
	r := &Runner{
		cfg:       cfg,
		fs:        fsys,
		log:       log,
		lifecycle: lifecycle,
		archiver:  archiver,
		checker:   checker,
		locker:    FileLocker,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type RunOptions struct {
	// DryRun validates prerequisites and reports what pruning would delete,
	// without touching the service or writing an archive or log record.
	DryRun bool
}

// Result records one run.
type Result struct {
	RunID       string
	Service     string
	DryRun      bool
	Start       time.Time
	End         time.Time
	ArchivePath string
	LogPath     string
	Archive     *archive.Result
	Retention   []retention.Result
	Offsite     *offsite.Result
	Steps       map[Step]time.Duration
	Warnings    []error
	Err         error

	step Step
}

func (r *Result) Success() bool { return r.Err == nil }

// Retained returns the artifacts left by the rule with the given name.
func (r *Result) Retained(rule string) []snapshot.Artifact {
	for _, rr := range r.Retention {
		if rr.Rule.Name == rule {
			return rr.Remaining
		}
	}
	return nil
}

// Run performs one backup. The returned error, when not nil, is a *StepError
// and is also stored in Result.Err.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (res *Result, err error) {
	start := r.now().UTC()
	dest := r.cfg.Destination
	res = &Result{
		RunID:       r.newID(),
		Service:     r.cfg.Service.Name,
		DryRun:      opts.DryRun,
		Start:       start,
		ArchivePath: filepath.Join(dest.Path, snapshot.Name(dest.Prefix, start, snapshot.Extension(r.cfg.Archive.Compression))),
		Steps:       map[Step]time.Duration{},
		step:        StepPrerequisites,
	}
	log := r.log

	if err := fs.EnsureDir(r.fs, dest.Path); err != nil {
		return r.finish(log, res, &StepError{
			Step: StepPrerequisites, Kind: ErrPrerequisite,
			Err: fmt.Errorf("destination directory %s: %w", dest.Path, err),
		})
	}

	if r.cfg.Logging.File && !opts.DryRun {
		teed, closeLog, path, err := r.openRunLog(start)
		if err != nil {
			log.Warn("per-run log record unavailable, logging to console only", "error", err)
		} else {
			log, res.LogPath = teed, path
			defer closeLog()
		}
	}

	defer func() {
		if p := recover(); p != nil {
			res, err = r.finish(log, res, &StepError{
				Step: res.step, Kind: kindOf(res.step),
				Err: fmt.Errorf("panic: %v", p),
			})
		}
	}()

	log.Info("backup run started",
		"run", res.RunID,
		"service", res.Service,
		"source", r.cfg.Source.Path,
		"archive", res.ArchivePath,
		"dryRun", opts.DryRun,
	)

	if r.cfg.Lock.Enabled {
		l, err := r.locker(r.cfg.Lock.Path)
		if err != nil {
			return r.finish(log, res, &StepError{Step: StepPrerequisites, Kind: ErrPrerequisite, Err: err})
		}
		defer func() {
			if err := l.Release(); err != nil {
				log.Warn("releasing run lock", "error", err)
			}
		}()
	}

	t := r.now()
	err = r.checker.Check(ctx, prereq.Spec{
		SourceDir: r.cfg.Source.Path,
		DestDir:   dest.Path,
		Service:   r.cfg.Service.Name,
		Tools:     r.cfg.RequiredTools(),
	})
	res.Steps[StepPrerequisites] = r.now().Sub(t)
	if err != nil {
		return r.finish(log, res, &StepError{Step: StepPrerequisites, Kind: ErrPrerequisite, Err: err})
	}
	log.Info("prerequisites satisfied")

	if opts.DryRun {
		log.Info("dry run: service would be stopped, archived and started again",
			"service", res.Service, "archive", res.ArchivePath)
		r.prune(ctx, log, res, true)
		return r.finish(log, res, nil)
	}

	if err := r.snapshot(ctx, log, res); err != nil {
		return r.finish(log, res, err)
	}

	r.prune(ctx, log, res, false)
	r.copyOffsite(ctx, log, res)
	return r.finish(log, res, nil)
}

// snapshot stops the service, archives the source and starts the service
// again, classifying whatever failed.
func (r *Runner) snapshot(ctx context.Context, log logging.Logger, res *Result) error {
	var (
		ran        bool
		archiveErr error
		archiveEnd time.Time
	)

	res.step = StepStop
	stopAt := r.now()
	err := r.lifecycle.Quiesce(ctx, func(ctx context.Context) error {
		ran = true
		res.Steps[StepStop] = r.now().Sub(stopAt)

		res.step = StepArchive
		t := r.now()
		ar, err := r.archiver.Create(ctx, archive.Request{
			SourceDir: r.cfg.Source.Path,
			DestPath:  res.ArchivePath,
			Excludes: archive.Excludes{
				Patterns: r.cfg.Source.Exclude.Patterns,
				MaxDepth: r.cfg.Source.Exclude.MaxDepth,
			},
		})
		archiveEnd = r.now()
		res.Steps[StepArchive] = archiveEnd.Sub(t)
		res.step = StepStart
		if err != nil {
			archiveErr = err
			return err
		}

		res.Archive = &ar
		log.Info("archive created",
			"path", ar.Path, "size", ar.Size, "entries", ar.Entries, "excluded", ar.Excluded)
		return nil
	})
	if !archiveEnd.IsZero() {
		res.Steps[StepStart] = r.now().Sub(archiveEnd)
	}
	if err == nil {
		return nil
	}

	down := service.IsStartFailure(err)
	switch {
	case !ran:
		return &StepError{Step: StepStop, Kind: ErrLifecycle, ServiceDown: down, Err: err}
	case archiveErr != nil:
		return &StepError{Step: StepArchive, Kind: ErrArchive, ServiceDown: down, Err: err}
	default:
		return &StepError{Step: StepStart, Kind: ErrLifecycle, ServiceDown: true, Err: err}
	}
}

// Rules returns the retention rules for archives and per-run logs.
func Rules(cfg *config.Config) []retention.Rule {
	dest := cfg.Destination
	return []retention.Rule{
		{Name: "archives", Dir: dest.Path, Pattern: snapshot.ArchivePattern(dest.Prefix), Keep: dest.Retention.MaxCount},
		{Name: "logs", Dir: cfg.Logging.Dir, Pattern: snapshot.Pattern(dest.Prefix, snapshot.LogExt), Keep: dest.Retention.MaxCount},
	}
}

func (r *Runner) prune(ctx context.Context, log logging.Logger, res *Result, dryRun bool) {
	res.step = StepPrune
	t := r.now()

	engine := retention.New(r.fs, log, dryRun)
	res.Retention = engine.Apply(ctx, Rules(r.cfg))
	res.Steps[StepPrune] = r.now().Sub(t)

	for _, rr := range res.Retention {
		for _, w := range rr.Warnings {
			res.Warnings = append(res.Warnings, &Warning{Step: StepPrune, Err: w})
		}
		for _, a := range rr.Remaining {
			log.Info("retained", "kind", rr.Rule.Name, "name", a.Name, "size", a.Size)
		}
	}
}

func (r *Runner) copyOffsite(ctx context.Context, log logging.Logger, res *Result) {
	if r.offsite == nil || res.Archive == nil {
		return
	}
	res.step = StepOffsite
	t := r.now()

	out := r.offsite.Sync(ctx, res.Archive.Path, snapshot.ArchivePattern(r.cfg.Destination.Prefix))
	res.Offsite = &out
	res.Steps[StepOffsite] = r.now().Sub(t)

	for _, w := range out.Warnings {
		log.Warn("offsite copy", "error", w)
		res.Warnings = append(res.Warnings, &Warning{Step: StepOffsite, Err: w})
	}
	if out.Key != "" {
		log.Info("offsite copy done", "key", out.Key, "pruned", len(out.Deleted), "remaining", len(out.Remaining))
	}
}

func (r *Runner) openRunLog(ts time.Time) (*logging.ZapLogger, func(), string, error) {
	dir := r.cfg.Logging.Dir
	if err := fs.EnsureDir(r.fs, dir); err != nil {
		return nil, nil, "", fmt.Errorf("log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, snapshot.Name(r.cfg.Destination.Prefix, ts, snapshot.LogExt))
	f, err := r.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, "", fmt.Errorf("open log record: %w", err)
	}

	teed := r.log.Tee(f)
	return teed, func() {
		_ = teed.Sync()
		_ = f.Close()
	}, path, nil
}

func (r *Runner) finish(log *logging.ZapLogger, res *Result, err error) (*Result, error) {
	res.End = r.now().UTC()
	res.Err = err
	r.writeMetrics(log, res)

	if err == nil {
		log.Info("backup run finished",
			"run", res.RunID,
			"duration", res.End.Sub(res.Start),
			"warnings", len(res.Warnings),
		)
		return res, nil
	}

	var se *StepError
	if errors.As(err, &se) {
		if se.ServiceDown {
			log.Error("service left down", "service", res.Service)
		}
		log.Error("backup run failed", "run", res.RunID, "step", se.Step, "error", se.Err)
	} else {
		log.Error("backup run failed", "run", res.RunID, "error", err)
	}
	return res, err
}

func (r *Runner) writeMetrics(log logging.Logger, res *Result) {
	if r.metrics == nil || res.DryRun {
		return
	}

	stats := metrics.RunStats{
		Service: res.Service,
		Start:   res.Start,
		End:     res.End,
		Success: res.Err == nil,
		Pruned:  map[string]int{},
		Steps:   map[string]time.Duration{},
	}
	if res.Archive != nil {
		stats.ArchiveSize = res.Archive.Size
	}
	stats.Retained = len(res.Retained("archives"))
	for _, rr := range res.Retention {
		stats.Pruned[rr.Rule.Name] = len(rr.Deleted)
	}
	for step, d := range res.Steps {
		stats.Steps[string(step)] = d
	}
	path := r.cfg.Metrics.Textfile
	if path != "" {
		if err := r.metrics.Restore(path); err != nil {
			log.Warn("previous metrics textfile unreadable, counters start over", "path", path, "error", err)
		}
	}
	r.metrics.Observe(stats)

	if path != "" {
		if err := r.metrics.WriteTextfile(path); err != nil {
			log.Warn("writing metrics textfile", "path", path, "error", err)
			res.Warnings = append(res.Warnings, &Warning{Step: StepMetrics, Err: err})
		}
	}
}

func kindOf(step Step) error {
	switch step {
	case StepStop, StepStart:
		return ErrLifecycle
	case StepPrerequisites:
		return ErrPrerequisite
	default:
		return ErrArchive
	}
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/raoulx24/media-backup/internal/logging"
)

// Lifecycle adds the backup's stop/start semantics on top of a Controller:
// fixed settle intervals, a no-op stop for a stopped service, an idempotent
// start, and the Quiesce guard.
type Lifecycle struct {
	ctl            Controller
	name           string
	log            logging.Logger
	stopGrace      time.Duration
	startGrace     time.Duration
	restartTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

type Option func(*Lifecycle)

func WithGrace(stop, start time.Duration) Option {
	return func(l *Lifecycle) {
		l.stopGrace = stop
		l.startGrace = start
	}
}

// WithRestartTimeout bounds the restart attempted by Quiesce after the
// caller's context is gone. Zero means unbounded.
func WithRestartTimeout(d time.Duration) Option {
	return func(l *Lifecycle) {
		l.restartTimeout = d
	}
}

// WithSleep replaces the grace interval wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Lifecycle) {
		l.sleep = sleep
	}
}

func NewLifecycle(ctl Controller, name string, log logging.Logger, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		ctl:   ctl,
		name:  name,
		log:   log,
		sleep: sleepCtx,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lifecycle) Name() string { return l.name }

// Stop stops the service if it is running and waits for it to settle. It
// reports whether the service was running. Stopping a stopped service is
// logged and is not an error.
func (l *Lifecycle) Stop(ctx context.Context) (bool, error) {
	running, err := l.ctl.IsRunning(ctx, l.name)
	if err != nil {
		return false, &OpError{Op: "stop", Service: l.name, Err: err}
	}
	if !running {
		l.log.Warn("service is not running, nothing to stop", "service", l.name)
		return false, nil
	}

	l.log.Info("stopping service", "service", l.name)
	if err := l.ctl.Stop(ctx, l.name); err != nil {
		return true, &OpError{Op: "stop", Service: l.name, Err: err}
	}
	if err := l.sleep(ctx, l.stopGrace); err != nil {
		return true, &OpError{Op: "stop", Service: l.name, Err: err}
	}

	running, err = l.ctl.IsRunning(ctx, l.name)
	if err != nil {
		return true, &OpError{Op: "stop", Service: l.name, Err: err}
	}
	if running {
		return true, &OpError{Op: "stop", Service: l.name, Err: ErrStillRunning}
	}
	l.log.Info("service stopped", "service", l.name)
	return true, nil
}

// Start starts the service unless it is already running, then waits for it
// to come up and confirms it is running.
func (l *Lifecycle) Start(ctx context.Context) error {
	running, err := l.ctl.IsRunning(ctx, l.name)
	if err != nil {
		return &OpError{Op: "start", Service: l.name, Err: err}
	}
	if running {
		l.log.Info("service already running", "service", l.name)
		return nil
	}

	l.log.Info("starting service", "service", l.name)
	if err := l.ctl.Start(ctx, l.name); err != nil {
		return &OpError{Op: "start", Service: l.name, Err: err}
	}
	if err := l.sleep(ctx, l.startGrace); err != nil {
		return &OpError{Op: "start", Service: l.name, Err: err}
	}

	running, err = l.ctl.IsRunning(ctx, l.name)
	if err != nil {
		return &OpError{Op: "start", Service: l.name, Err: err}
	}
	if !running {
		return &OpError{Op: "start", Service: l.name, Err: ErrNotRunning}
	}
	l.log.Info("service started", "service", l.name)
	return nil
}

// Quiesce stops the service, runs fn, and starts the service again on every
// exit path: success, error, panic and cancellation of ctx. The restart runs
// on a context detached from ctx. fn is not run when the stop fails.
func (l *Lifecycle) Quiesce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		rctx := context.WithoutCancel(ctx)
		if l.restartTimeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(rctx, l.restartTimeout)
			defer cancel()
		}
		if startErr := l.Start(rctx); startErr != nil {
			l.log.Error("service could not be restarted", "service", l.name, "error", startErr)
			err = errors.Join(err, startErr)
		}
	}()

	if _, err := l.Stop(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package worker executes backup jobs taken from the mailbox, one at a time.
package worker

import (
	"context"
	"sync"

	"github.com/raoulx24/media-backup/internal/backup"
	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/mailbox"
)

// Runner performs one backup run.
type Runner interface {
	Run(ctx context.Context, opts backup.RunOptions) (*backup.Result, error)
}

// Worker runs backups serially.
type Worker struct {
	mu     sync.RWMutex
	runner Runner
	log    logging.Logger
	mb     *mailbox.Mailbox[Job]
	done   func(Job, *backup.Result)
}

// New creates a worker. done, when not nil, is called after every run.
func New(runner Runner, log logging.Logger, mb *mailbox.Mailbox[Job], done func(Job, *backup.Result)) *Worker {
	log.Debug("creating worker")
	return &Worker{
		runner: runner,
		log:    log,
		mb:     mb,
		done:   done,
	}
}

// UpdateRunner hot-swaps the runner. A run in progress finishes with the old one.
func (w *Worker) UpdateRunner(r Runner) {
	w.log.Debug("entering Worker.UpdateRunner()")
	w.mu.Lock()
	w.runner = r
	w.mu.Unlock()
}

// Handle runs one job.
func (w *Worker) Handle(ctx context.Context, job Job) *backup.Result {
	w.mu.RLock()
	r := w.runner
	w.mu.RUnlock()

	w.log.Info("backup triggered", "trigger", job.Trigger, "at", job.At)
	res, err := r.Run(ctx, backup.RunOptions{})
	if err != nil {
		w.log.Error("worker: backup failed", "trigger", job.Trigger, "error", err)
	}
	if w.done != nil && res != nil {
		w.done(job, res)
	}
	return res
}

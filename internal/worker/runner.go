package worker

import (
	"context"
)

// Start pulls jobs from the mailbox until ctx is done. A run in progress when
// ctx is cancelled is interrupted through its own context handling.
func (w *Worker) Start(ctx context.Context) error {
	w.log.Info("starting worker")
	for {
		job, ok := w.mb.Take(ctx)
		if !ok {
			w.log.Info("worker stopped")
			return nil
		}
		w.Handle(ctx, job)
	}
}

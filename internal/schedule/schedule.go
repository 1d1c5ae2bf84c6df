// Package schedule triggers backup runs from a cron expression.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/media-backup/internal/config"
	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/mailbox"
	"github.com/raoulx24/media-backup/internal/worker"
)

// Scheduler owns a single cron entry that puts jobs into the mailbox.
type Scheduler struct {
	mu   sync.Mutex
	c    *cron.Cron
	id   cron.EntryID
	spec string
	mb   *mailbox.Mailbox[worker.Job]
	log  logging.Logger
	now  func() time.Time
}

func New(spec string, mb *mailbox.Mailbox[worker.Job], log logging.Logger) (*Scheduler, error) {
	s := &Scheduler{
		c:   cron.New(cron.WithParser(config.CronParser), cron.WithLogger(cronLogger{log})),
		mb:  mb,
		log: log,
		now: time.Now,
	}
	if err := s.Update(spec); err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces the schedule. An invalid spec leaves the current one in place.
func (s *Scheduler) Update(spec string) error {
	sched, err := config.CronParser.Parse(spec)
	if err != nil {
		return fmt.Errorf("parsing cron %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if spec == s.spec && s.id != 0 {
		return nil
	}

	id := s.c.Schedule(sched, cron.FuncJob(s.trigger))
	if s.id != 0 {
		s.c.Remove(s.id)
		s.log.Info("schedule updated", "from", s.spec, "to", spec)
	}
	s.id, s.spec = id, spec
	return nil
}

// Next returns the next activation, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Entry(s.id).Next
}

// Start runs the schedule until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.c.Start()
	s.log.Info("scheduler started", "cron", s.spec, "next", s.Next())

	<-ctx.Done()
	<-s.c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) trigger() {
	if s.mb.Put(worker.Job{Trigger: worker.TriggerCron, At: s.now()}) {
		s.log.Warn("previous trigger still pending, coalescing")
	}
}

// cronLogger routes cron's own messages to our logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

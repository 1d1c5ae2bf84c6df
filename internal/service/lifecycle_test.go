package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/service"
	"github.com/raoulx24/media-backup/internal/service/servicetest"
)

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return ctx.Err()
}

func newLifecycle(ctl service.Controller, s *sleepRecorder) *service.Lifecycle {
	return service.NewLifecycle(ctl, "plex", logging.Nop(),
		service.WithGrace(10*time.Second, 15*time.Second),
		service.WithSleep(s.sleep),
	)
}

func TestStartIsIdempotent(t *testing.T) {
	fake := servicetest.New().Add("plex", true)
	s := &sleepRecorder{}
	l := newLifecycle(fake, s)

	require.NoError(t, l.Start(context.Background()))
	require.NoError(t, l.Start(context.Background()))

	assert.Equal(t, 0, fake.StartCalls)
	assert.Empty(t, s.slept)
	assert.True(t, fake.Running("plex"))
}

func TestStartStoppedService(t *testing.T) {
	fake := servicetest.New().Add("plex", false)
	s := &sleepRecorder{}
	l := newLifecycle(fake, s)

	require.NoError(t, l.Start(context.Background()))
	assert.Equal(t, 1, fake.StartCalls)
	assert.Equal(t, []time.Duration{15 * time.Second}, s.slept)

	require.NoError(t, l.Start(context.Background()))
	assert.Equal(t, 1, fake.StartCalls)
}

func TestStartFailsWhenServiceDoesNotComeUp(t *testing.T) {
	fake := servicetest.New().Add("plex", false)
	fake.IgnoreStart = true
	l := newLifecycle(fake, &sleepRecorder{})

	err := l.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrNotRunning)
	assert.True(t, service.IsStartFailure(err))
}

func TestStopOnStoppedServiceIsNoop(t *testing.T) {
	fake := servicetest.New().Add("plex", false)
	s := &sleepRecorder{}
	l := newLifecycle(fake, s)

	wasRunning, err := l.Stop(context.Background())
	require.NoError(t, err)
	assert.False(t, wasRunning)
	assert.Equal(t, 0, fake.StopCalls)
	assert.Empty(t, s.slept)
}

func TestStopRunningService(t *testing.T) {
	fake := servicetest.New().Add("plex", true)
	s := &sleepRecorder{}
	l := newLifecycle(fake, s)

	wasRunning, err := l.Stop(context.Background())
	require.NoError(t, err)
	assert.True(t, wasRunning)
	assert.False(t, fake.Running("plex"))
	assert.Equal(t, []time.Duration{10 * time.Second}, s.slept)
}

func TestStopUnknownService(t *testing.T) {
	l := newLifecycle(servicetest.New(), &sleepRecorder{})
	_, err := l.Stop(context.Background())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestQuiesceOrdersStopWorkStart(t *testing.T) {
	var events []string
	fake := servicetest.New().Add("plex", true)
	fake.Record = func(e string) { events = append(events, e) }
	l := newLifecycle(fake, &sleepRecorder{})

	err := l.Quiesce(context.Background(), func(context.Context) error {
		assert.False(t, fake.Running("plex"), "service must be stopped while working")
		events = append(events, "work")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stop:plex", "work", "start:plex"}, events)
	assert.True(t, fake.Running("plex"))
}

func TestQuiesceRestartsAfterFailure(t *testing.T) {
	fake := servicetest.New().Add("plex", true)
	l := newLifecycle(fake, &sleepRecorder{})

	workErr := errors.New("tar exploded")
	err := l.Quiesce(context.Background(), func(context.Context) error { return workErr })
	assert.ErrorIs(t, err, workErr)
	assert.False(t, service.IsStartFailure(err))
	assert.True(t, fake.Running("plex"))
}

func TestQuiesceRestartsAfterCancellation(t *testing.T) {
	fake := servicetest.New().Add("plex", true)
	l := newLifecycle(fake, &sleepRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	err := l.Quiesce(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, fake.Running("plex"))
}

func TestQuiesceRestartsAfterPanic(t *testing.T) {
	fake := servicetest.New().Add("plex", true)
	l := newLifecycle(fake, &sleepRecorder{})

	assert.Panics(t, func() {
		_ = l.Quiesce(context.Background(), func(context.Context) error { panic("boom") })
	})
	assert.True(t, fake.Running("plex"))
}

func TestQuiesceReportsStartFailureAlongsideWorkError(t *testing.T) {
	fake := servicetest.New().Add("plex", true)
	fake.StartErr = errors.New("port already allocated")
	l := newLifecycle(fake, &sleepRecorder{})

	workErr := errors.New("disk full")
	err := l.Quiesce(context.Background(), func(context.Context) error { return workErr })
	assert.ErrorIs(t, err, workErr)
	assert.True(t, service.IsStartFailure(err))
}

func TestQuiesceSkipsWorkWhenStopFails(t *testing.T) {
	fake := servicetest.New().Add("plex", true)
	fake.StopErr = errors.New("daemon busy")
	l := newLifecycle(fake, &sleepRecorder{})

	called := false
	err := l.Quiesce(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.False(t, service.IsStartFailure(err))
	assert.True(t, fake.Running("plex"))
	assert.Equal(t, 0, fake.StartCalls)
}

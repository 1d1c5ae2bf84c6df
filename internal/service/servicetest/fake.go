// Package servicetest provides an in-memory service.Controller for tests.
package servicetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/raoulx24/media-backup/internal/service"
)

// Fake simulates one or more containers. Unknown names are reported as missing.
type Fake struct {
	mu      sync.Mutex
	running map[string]bool

	// StopErr and StartErr make the respective call fail without changing state.
	StopErr  error
	StartErr error
	// IgnoreStart makes Start succeed without the container coming up.
	IgnoreStart bool
	// Record, when set, receives "stop:<name>" and "start:<name>" for every
	// state-changing call.
	Record func(event string)

	StopCalls  int
	StartCalls int
}

func New() *Fake {
	return &Fake{running: map[string]bool{}}
}

// Add registers a container in the given state.
func (f *Fake) Add(name string, running bool) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[name] = running
	return f
}

func (f *Fake) Running(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[name]
}

func (f *Fake) Exists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.running[name]
	return ok, nil
}

func (f *Fake) IsRunning(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	running, ok := f.running[name]
	if !ok {
		return false, fmt.Errorf("%s: %w", name, service.ErrNotFound)
	}
	return running, nil
}

func (f *Fake) Stop(_ context.Context, name string) error {
	f.mu.Lock()
	f.StopCalls++
	if f.StopErr != nil {
		f.mu.Unlock()
		return f.StopErr
	}
	f.running[name] = false
	rec := f.Record
	f.mu.Unlock()

	if rec != nil {
		rec("stop:" + name)
	}
	return nil
}

func (f *Fake) Start(_ context.Context, name string) error {
	f.mu.Lock()
	f.StartCalls++
	if f.StartErr != nil {
		f.mu.Unlock()
		return f.StartErr
	}
	if !f.IgnoreStart {
		f.running[name] = true
	}
	rec := f.Record
	f.mu.Unlock()

	if rec != nil {
		rec("start:" + name)
	}
	return nil
}

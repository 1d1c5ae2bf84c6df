// Package watcher detects changes to the configuration file so that serve
// mode can reload it without a restart.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/raoulx24/media-backup/internal/config"
	"github.com/raoulx24/media-backup/internal/fsprobe"
	"github.com/raoulx24/media-backup/internal/logging"
)

// Watcher observes one file and calls onChange when its content settles on
// a new version.
type Watcher struct {
	mu sync.RWMutex

	fs        afero.Fs
	path      string
	interval  time.Duration
	mode      string
	debounce  time.Duration
	stability time.Duration

	log logging.Logger

	last state

	onChange func()
}

type state struct {
	mod  time.Time
	size int64
}

// New creates a watcher for path. The current state of the file is the
// baseline; only later changes trigger onChange.
func New(path string, cfg config.ReloadConfig, fsys afero.Fs, log logging.Logger, onChange func()) *Watcher {
	w := &Watcher{
		fs:        fsys,
		path:      path,
		interval:  cfg.PollInterval,
		mode:      cfg.Method,
		debounce:  cfg.DebounceWindow,
		stability: 100 * time.Millisecond,
		log:       log,
		onChange:  onChange,
	}
	w.last, _ = w.stat()
	return w
}

// Start chooses the correct watching strategy based on config.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	mode := w.mode
	w.mu.RUnlock()

	switch mode {
	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "auto":
		res := fsprobe.Probe(filepath.Dir(w.path))
		if res.FsnotifySupported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, polling config file", "reason", res.Reason)
		w.StartPolling(ctx)
		return nil

	default:
		return fmt.Errorf("unknown config reload method %q", mode)
	}
}

func (w *Watcher) stat() (state, error) {
	info, err := w.fs.Stat(w.path)
	if err != nil {
		return state{}, err
	}
	return state{mod: info.ModTime(), size: info.Size()}, nil
}

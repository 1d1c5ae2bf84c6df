package watcher

import (
	"github.com/raoulx24/media-backup/internal/config"
)

// UpdateConfig applies new reload settings. The interval and debounce take
// effect immediately; a change of method needs a restart of the watcher.
// A non-positive interval keeps the current one.
func (w *Watcher) UpdateConfig(cfg config.ReloadConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cfg.Method != w.mode {
		w.log.Warn("config reload method change takes effect after restart", "from", w.mode, "to", cfg.Method)
	}
	if cfg.PollInterval > 0 {
		w.interval = cfg.PollInterval
	} else {
		w.log.Warn("ignoring non-positive config reload poll interval", "interval", cfg.PollInterval, "keeping", w.interval)
	}
	if cfg.DebounceWindow >= 0 {
		w.debounce = cfg.DebounceWindow
	}
}

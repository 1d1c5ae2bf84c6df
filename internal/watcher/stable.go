package watcher

import (
	"time"
)

// isStable reports whether the file size holds still over the stability window.
func (w *Watcher) isStable() bool {
	w.mu.RLock()
	stability := w.stability
	w.mu.RUnlock()

	before, err := w.stat()
	if err != nil {
		return false
	}

	time.Sleep(stability)

	after, err := w.stat()
	if err != nil {
		return false
	}

	return before.size == after.size
}

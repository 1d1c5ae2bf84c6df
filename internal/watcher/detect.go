package watcher

// detect calls onChange if the file changed since the last call and is no
// longer being written.
func (w *Watcher) detect() {
	cur, err := w.stat()
	if err != nil {
		w.log.Debug("config file not readable", "path", w.path, "error", err)
		return
	}

	w.mu.RLock()
	last := w.last
	w.mu.RUnlock()

	if cur.mod.Equal(last.mod) && cur.size == last.size {
		return
	}
	if !w.isStable() {
		w.log.Debug("config file still changing", "path", w.path)
		return
	}

	w.mu.Lock()
	w.last = cur
	w.mu.Unlock()

	w.log.Info("config file changed", "path", w.path)
	w.onChange()
}

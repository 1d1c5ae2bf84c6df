package fs

import (
	"errors"
	"syscall"
)

var (
	// ErrSourceChanged is returned when a file is modified while being read.
	ErrSourceChanged = errors.New("source changed during read")
	ErrNotDir        = errors.New("not a directory")
)

// isTransient reports whether an operation is worth retrying.
func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EINTR)
}

// Package service controls the container whose configuration is backed up.
package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("service not found")
	ErrStillRunning = errors.New("service still running after stop grace interval")
	ErrNotRunning   = errors.New("service not running after start grace interval")
)

// Controller is the narrow capability the backup needs from a container runtime.
type Controller interface {
	Exists(ctx context.Context, name string) (bool, error)
	IsRunning(ctx context.Context, name string) (bool, error)
	Stop(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
}

// OpError reports a failed lifecycle operation.
type OpError struct {
	Op      string // "stop" or "start"
	Service string
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Service, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// IsStartFailure reports whether err contains a failed start.
func IsStartFailure(err error) bool {
	var op *OpError
	return errors.As(err, &op) && op.Op == "start"
}

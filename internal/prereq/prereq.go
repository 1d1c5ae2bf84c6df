// Package prereq validates everything a backup run needs before it touches
// the service.
package prereq

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/raoulx24/media-backup/internal/fs"
	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/service"
)

// Spec lists what must be in place.
type Spec struct {
	SourceDir string
	DestDir   string
	Service   string
	Tools     []string
}

type Checker struct {
	fs       afero.Fs
	ctl      service.Controller
	log      logging.Logger
	lookPath func(string) (string, error)
}

func New(fsys afero.Fs, ctl service.Controller, log logging.Logger, lookPath func(string) (string, error)) *Checker {
	return &Checker{fs: fsys, ctl: ctl, log: log, lookPath: lookPath}
}

// Check runs every check and returns all failures joined. The destination
// directory is created when missing; nothing else is modified.
func (c *Checker) Check(ctx context.Context, spec Spec) error {
	var errs []error

	if err := c.checkSource(spec.SourceDir); err != nil {
		errs = append(errs, err)
	}

	if err := fs.EnsureDir(c.fs, spec.DestDir); err != nil {
		errs = append(errs, fmt.Errorf("destination directory %s: %w", spec.DestDir, err))
	}

	for _, tool := range spec.Tools {
		path, err := c.lookPath(tool)
		if err != nil {
			errs = append(errs, fmt.Errorf("required tool %q: %w", tool, err))
			continue
		}
		c.log.Debug("found required tool", "tool", tool, "path", path)
	}

	exists, err := c.ctl.Exists(ctx, spec.Service)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("looking up service %s: %w", spec.Service, err))
	case !exists:
		errs = append(errs, fmt.Errorf("service %s: %w", spec.Service, service.ErrNotFound))
	}

	return errors.Join(errs...)
}

func (c *Checker) checkSource(dir string) error {
	st, err := c.fs.Stat(dir)
	if err != nil {
		return fmt.Errorf("source directory: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("source directory %s: %w", dir, fs.ErrNotDir)
	}
	return nil
}

package fs

import (
	"context"

	"github.com/spf13/afero"
)

// Rename moves a finished file into place, retrying transient failures.
func Rename(ctx context.Context, fsys afero.Fs, oldPath, newPath string) error {
	return retry(ctx, "rename", func() error {
		return fsys.Rename(oldPath, newPath)
	})
}

// Remove deletes a single file, retrying transient failures.
func Remove(ctx context.Context, fsys afero.Fs, path string) error {
	return retry(ctx, "remove", func() error {
		return fsys.Remove(path)
	})
}

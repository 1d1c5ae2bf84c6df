package archive

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/raoulx24/media-backup/internal/command"
	"github.com/raoulx24/media-backup/internal/logging"
)

// Tar shells out to GNU tar. It needs the OS filesystem.
type Tar struct {
	fs          afero.Fs
	run         command.Runner
	log         logging.Logger
	compression string
	minSize     int64
}

func NewTar(fsys afero.Fs, run command.Runner, log logging.Logger, compression string, minSize int64) *Tar {
	return &Tar{fs: fsys, run: run, log: log, compression: compression, minSize: minSize}
}

func (t *Tar) Create(ctx context.Context, req Request) (res Result, err error) {
	if err := checkDest(t.fs, req.DestPath); err != nil {
		return res, err
	}

	tmp := partialPath(req.DestPath)
	defer func() {
		if err != nil {
			_ = t.fs.Remove(tmp)
		}
	}()

	args := t.args(req, tmp)
	t.log.Debug("archive: running tar", "args", args)
	if _, err = t.run.Run(ctx, "tar", args...); err != nil {
		return res, fmt.Errorf("tar: %w", err)
	}

	if err = finalize(ctx, t.fs, tmp, req.DestPath, t.minSize, &res); err != nil {
		return res, err
	}
	return res, nil
}

// args builds a tar invocation that archives the source directory relative
// to its parent. Exclusions are anchored at the archive root and '*' does not
// cross '/', which keeps each expanded pattern pinned to a single depth.
func (t *Tar) args(req Request, out string) []string {
	src := filepath.Clean(req.SourceDir)
	parent, base := filepath.Dir(src), filepath.Base(src)

	args := []string{
		"--create",
		"--file", out,
		"--directory", parent,
		"--anchored",
		"--no-wildcards-match-slash",
	}
	for _, p := range req.Excludes.Expand() {
		args = append(args, "--exclude="+base+"/"+p)
	}
	switch t.compression {
	case "zstd":
		args = append(args, "--zstd")
	default:
		args = append(args, "--gzip")
	}
	return append(args, base)
}

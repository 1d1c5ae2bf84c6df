package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	mbfs "github.com/raoulx24/media-backup/internal/fs"
	"github.com/raoulx24/media-backup/internal/logging"
)

// Native writes the archive in-process with archive/tar.
type Native struct {
	fs          afero.Fs
	log         logging.Logger
	compression string
	level       int
	minSize     int64

	compress func(w io.Writer, compression string, level int) (io.WriteCloser, error)
}

func NewNative(fsys afero.Fs, log logging.Logger, compression string, level int, minSize int64) *Native {
	return &Native{
		fs:          fsys,
		log:         log,
		compression: compression,
		level:       level,
		minSize:     minSize,
		compress:    newCompressor,
	}
}

func (n *Native) Create(ctx context.Context, req Request) (res Result, err error) {
	if err := checkDest(n.fs, req.DestPath); err != nil {
		return res, err
	}

	tmp := partialPath(req.DestPath)
	out, err := n.fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return res, fmt.Errorf("creating archive file: %w", err)
	}
	var cw io.WriteCloser
	defer func() {
		if err != nil {
			if cw != nil {
				_ = cw.Close()
			}
			_ = out.Close()
			_ = n.fs.Remove(tmp)
		}
	}()

	cw, err = n.compress(out, n.compression, n.level)
	if err != nil {
		return res, err
	}
	tw := tar.NewWriter(cw)

	root := filepath.Base(filepath.Clean(req.SourceDir))
	err = afero.Walk(n.fs, req.SourceDir, func(path string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(req.SourceDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if req.Excludes.Match(rel) {
			n.log.Debug("archive: excluded", "path", rel)
			res.Excluded++
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := root
		if rel != "." {
			name = root + "/" + rel
		}
		return n.addEntry(tw, path, name, info, &res)
	})
	if err != nil {
		return res, fmt.Errorf("walking %s: %w", req.SourceDir, err)
	}

	if err = tw.Close(); err != nil {
		return res, fmt.Errorf("finishing tar stream: %w", err)
	}
	if err = cw.Close(); err != nil {
		return res, fmt.Errorf("finishing compression: %w", err)
	}
	if err = out.Sync(); err != nil {
		return res, fmt.Errorf("syncing archive: %w", err)
	}
	if err = out.Close(); err != nil {
		return res, fmt.Errorf("closing archive: %w", err)
	}

	if err = finalize(ctx, n.fs, tmp, req.DestPath, n.minSize, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (n *Native) addEntry(tw *tar.Writer, path, name string, info fs.FileInfo, res *Result) error {
	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		lr, ok := n.fs.(afero.LinkReader)
		if !ok {
			return fmt.Errorf("%s: symlink on a filesystem without readlink support", path)
		}
		target, err := lr.ReadlinkIfPossible(path)
		if err != nil {
			return err
		}
		link = target
	} else if !info.Mode().IsRegular() && !info.IsDir() {
		n.log.Debug("archive: skipping special file", "path", path, "mode", info.Mode().String())
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%s: writing header: %w", path, err)
	}
	res.Entries++

	if info.Mode().IsRegular() {
		return mbfs.CopyStable(n.fs, mbfs.FromOS(path, info), tw)
	}
	return nil
}

func partialPath(dest string) string {
	return dest + ".partial"
}

func checkDest(fsys afero.Fs, dest string) error {
	exists, err := afero.Exists(fsys, dest)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", dest, ErrExists)
	}
	return nil
}

// finalize checks the finished temporary archive and moves it into place.
func finalize(ctx context.Context, fsys afero.Fs, tmp, dest string, minSize int64, res *Result) error {
	st, err := fsys.Stat(tmp)
	if err != nil {
		return fmt.Errorf("verifying archive: %w", err)
	}
	if st.Size() < minSize {
		return fmt.Errorf("%s is %d bytes: %w", tmp, st.Size(), ErrTooSmall)
	}
	if err := mbfs.Rename(ctx, fsys, tmp, dest); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	res.Path = dest
	res.Size = st.Size()
	return nil
}

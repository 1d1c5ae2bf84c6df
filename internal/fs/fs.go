// Package fs holds the filesystem helpers shared by the archiver, the
// retention pruner and the run controller. Everything operates on an
// afero.Fs so tests can run against an in-memory tree.
package fs

import (
	"os"
	"time"

	"github.com/spf13/afero"
)

type FileInfo struct {
	Path  string
	Size  int64
	MTime time.Time
	Inode uint64
}

func Stat(fsys afero.Fs, path string) (FileInfo, error) {
	st, err := fsys.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FromOS(path, st), nil
}

func FromOS(path string, st os.FileInfo) FileInfo {
	return FileInfo{
		Path:  path,
		Size:  st.Size(),
		MTime: st.ModTime(),
		Inode: inodeOf(st),
	}
}

// EnsureDir creates path (and parents) unless it already is a directory.
func EnsureDir(fsys afero.Fs, path string) error {
	st, err := fsys.Stat(path)
	if err == nil {
		if !st.IsDir() {
			return &os.PathError{Op: "mkdir", Path: path, Err: ErrNotDir}
		}
		return nil
	}
	return fsys.MkdirAll(path, 0o755)
}

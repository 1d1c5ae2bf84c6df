package fs

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// CopyStable streams exactly orig.Size bytes of orig.Path into w and then
// re-stats the file. A file that was replaced, grew, shrank or was touched
// while being read yields ErrSourceChanged, since the copy can no longer be
// trusted to be a consistent snapshot.
func CopyStable(fsys afero.Fs, orig FileInfo, w io.Writer) error {
	in, err := fsys.Open(orig.Path)
	if err != nil {
		return err
	}
	defer in.Close()

	n, err := io.CopyN(w, in, orig.Size)
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("%s: %w (short read: %d of %d bytes)", orig.Path, ErrSourceChanged, n, orig.Size)
		}
		return err
	}

	now, err := Stat(fsys, orig.Path)
	if err != nil {
		return err
	}
	if sourceChanged(orig, now) {
		return fmt.Errorf("%s: %w", orig.Path, ErrSourceChanged)
	}
	return nil
}

func sourceChanged(orig, now FileInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if now.MTime.After(orig.MTime) {
		return true
	}
	return now.Size != orig.Size
}

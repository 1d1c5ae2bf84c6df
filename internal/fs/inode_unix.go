//go:build unix

package fs

import (
	"os"
	"syscall"
)

// inodeOf returns 0 for filesystems that do not expose a Stat_t, such as
// afero's in-memory implementation.
func inodeOf(info os.FileInfo) uint64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(st.Ino)
}

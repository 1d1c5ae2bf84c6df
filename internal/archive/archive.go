// Package archive produces the compressed snapshot of a service's
// configuration directory. Archives are rooted at the source directory's base
// name so they can be restored under any parent path, and regenerable
// subtrees (caches, crash reports, codecs) are left out.
package archive

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	ErrExists   = errors.New("archive already exists")
	ErrTooSmall = errors.New("archive is smaller than the configured minimum")
)

// Request describes one archive to create.
type Request struct {
	// SourceDir is the absolute directory to archive.
	SourceDir string
	// DestPath is the final archive path. It must not exist yet.
	DestPath string
	Excludes Excludes
}

// Result describes a finished archive.
type Result struct {
	Path     string
	Size     int64
	Entries  int
	Excluded int
}

// Archiver creates one archive per call.
type Archiver interface {
	Create(ctx context.Context, req Request) (Result, error)
}

// Excludes lists path-component patterns skipped at depths 1..MaxDepth below
// the archive root.
type Excludes struct {
	Patterns []string
	MaxDepth int
}

// Expand returns one slash-separated pattern per pattern and depth, e.g.
// "Cache", "*/Cache", "*/*/Cache" for MaxDepth 3.
func (e Excludes) Expand() []string {
	var out []string
	for depth := 1; depth <= e.MaxDepth; depth++ {
		lead := strings.Repeat("*/", depth-1)
		for _, p := range e.Patterns {
			out = append(out, lead+p)
		}
	}
	return out
}

// Match reports whether rel, a slash-separated path relative to the source
// directory, is an excluded entry. Only the last component is tested; callers
// walking top-down skip excluded directories before reaching their children.
func (e Excludes) Match(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	if strings.Count(rel, "/")+1 > e.MaxDepth {
		return false
	}
	name := path.Base(rel)
	for _, p := range e.Patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

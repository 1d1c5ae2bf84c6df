package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/media-backup/internal/logging"
)

var base = time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)

// seed creates n archives whose names sort in the opposite order of their
// modification times, so any name-based selection would fail the tests.
func seed(t *testing.T, fsys afero.Fs, dir string, n int) []string {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(dir, 0o755))

	var byAge []string // oldest first
	for i := range n {
		name := fmt.Sprintf("plex_backup_%02d.tar.gz", n-i)
		path := filepath.Join(dir, name)
		require.NoError(t, afero.WriteFile(fsys, path, []byte(name), 0o644))
		mtime := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, fsys.Chtimes(path, mtime, mtime))
		byAge = append(byAge, name)
	}
	return byAge
}

func names(t *testing.T, fsys afero.Fs, dir, pattern string) []string {
	t.Helper()
	artifacts, err := Scan(fsys, dir, pattern)
	require.NoError(t, err)
	var out []string
	for _, a := range artifacts {
		out = append(out, a.Name)
	}
	return out
}

func TestApplyRuleKeepsNewestByModTime(t *testing.T) {
	for n := 0; n <= 9; n++ {
		for keep := 1; keep <= 5; keep++ {
			t.Run(fmt.Sprintf("n=%d/keep=%d", n, keep), func(t *testing.T) {
				fsys := afero.NewMemMapFs()
				byAge := seed(t, fsys, "/backups", n)

				e := New(fsys, logging.Nop(), false)
				res, err := e.ApplyRule(context.Background(), Rule{
					Name: "archives", Dir: "/backups", Pattern: "plex_backup_*.tar.gz", Keep: keep,
				})
				require.NoError(t, err)
				assert.Empty(t, res.Warnings)

				want := byAge[max(0, n-keep):]
				left := names(t, fsys, "/backups", "*")
				assert.Len(t, left, min(n, keep))
				assert.ElementsMatch(t, want, left)
				assert.Len(t, res.Remaining, min(n, keep))
				assert.Len(t, res.Deleted, max(0, n-keep))
			})
		}
	}
}

func TestApplyRuleIgnoresOtherFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "/backups", 3)
	require.NoError(t, afero.WriteFile(fsys, "/backups/plex_backup_2026.log", []byte("log"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/backups/.media-backup.lock", nil, 0o644))
	require.NoError(t, fsys.MkdirAll("/backups/plex_backup_dir.tar.gz", 0o755))

	e := New(fsys, logging.Nop(), false)
	_, err := e.ApplyRule(context.Background(), Rule{Name: "archives", Dir: "/backups", Pattern: "plex_backup_*.tar.gz", Keep: 1})
	require.NoError(t, err)

	for _, kept := range []string{"plex_backup_2026.log", ".media-backup.lock"} {
		ok, _ := afero.Exists(fsys, filepath.Join("/backups", kept))
		assert.True(t, ok, kept)
	}
	ok, _ := afero.DirExists(fsys, "/backups/plex_backup_dir.tar.gz")
	assert.True(t, ok)
	assert.Len(t, names(t, fsys, "/backups", "plex_backup_*.tar.gz"), 1)
}

func TestApplyRuleDryRun(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "/backups", 4)

	e := New(fsys, logging.Nop(), true)
	res, err := e.ApplyRule(context.Background(), Rule{Name: "archives", Dir: "/backups", Pattern: "*.tar.gz", Keep: 2})
	require.NoError(t, err)
	assert.Len(t, res.Deleted, 2)
	assert.Len(t, names(t, fsys, "/backups", "*.tar.gz"), 4)
}

// flakyFs refuses to delete one file.
type flakyFs struct {
	afero.Fs
	deny string
}

func (f flakyFs) Remove(name string) error {
	if filepath.Base(name) == f.deny {
		return &os.PathError{Op: "remove", Path: name, Err: syscall.EACCES}
	}
	return f.Fs.Remove(name)
}

func TestApplyRuleDeletionFailureIsAWarning(t *testing.T) {
	mem := afero.NewMemMapFs()
	byAge := seed(t, mem, "/backups", 5)
	fsys := flakyFs{Fs: mem, deny: byAge[0]}

	e := New(fsys, logging.Nop(), false)
	res, err := e.ApplyRule(context.Background(), Rule{Name: "archives", Dir: "/backups", Pattern: "*.tar.gz", Keep: 2})
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], syscall.EACCES)
	assert.Len(t, res.Deleted, 2)

	// the undeletable file is still reported as remaining, oldest first
	require.Len(t, res.Remaining, 3)
	assert.Equal(t, byAge[0], res.Remaining[0].Name)
	assert.Equal(t, byAge[4], res.Remaining[2].Name)
}

func TestApplyCollectsPerRuleErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "/backups", 3)

	e := New(fsys, logging.Nop(), false)
	results := e.Apply(context.Background(), []Rule{
		{Name: "logs", Dir: "/missing", Pattern: "*.log", Keep: 1},
		{Name: "archives", Dir: "/backups", Pattern: "*.tar.gz", Keep: 1},
	})
	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].Warnings)
	assert.Empty(t, results[1].Warnings)
	assert.Len(t, results[1].Remaining, 1)
}

func TestApplyRuleRejectsZeroKeep(t *testing.T) {
	e := New(afero.NewMemMapFs(), logging.Nop(), false)
	_, err := e.ApplyRule(context.Background(), Rule{Name: "archives", Dir: "/", Pattern: "*", Keep: 0})
	assert.Error(t, err)
}

package prereq

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/media-backup/internal/fs"
	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/service"
	"github.com/raoulx24/media-backup/internal/service/servicetest"
)

func lookPath(available ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestCheckPasses(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/srv/plex", 0o755))

	c := New(fsys, servicetest.New().Add("plex", true), logging.Nop(), lookPath("docker", "tar"))
	err := c.Check(context.Background(), Spec{
		SourceDir: "/srv/plex",
		DestDir:   "/backups/plex",
		Service:   "plex",
		Tools:     []string{"docker", "tar"},
	})
	require.NoError(t, err)

	ok, _ := afero.DirExists(fsys, "/backups/plex")
	assert.True(t, ok, "destination is created")
}

func TestCheckReportsEveryFailure(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/backups", []byte("not a dir"), 0o644))

	c := New(fsys, servicetest.New(), logging.Nop(), lookPath())
	err := c.Check(context.Background(), Spec{
		SourceDir: "/srv/plex",
		DestDir:   "/backups",
		Service:   "plex",
		Tools:     []string{"tar"},
	})
	require.Error(t, err)

	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, err, fs.ErrNotDir)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Contains(t, err.Error(), `required tool "tar"`)
}

func TestCheckSourceMustBeDirectory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/srv/plex", nil, 0o644))

	c := New(fsys, servicetest.New().Add("plex", false), logging.Nop(), lookPath())
	err := c.Check(context.Background(), Spec{SourceDir: "/srv/plex", DestDir: "/backups", Service: "plex"})
	assert.ErrorIs(t, err, fs.ErrNotDir)
}

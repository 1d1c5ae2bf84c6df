package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/media-backup/internal/backup"
	"github.com/raoulx24/media-backup/internal/config"
	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/worker"
)

const serveYAML = baseYAML + `
schedule:
  cron: "0 4 * * *"
  runOnStart: true
configReload:
  method: poll
  pollInterval: 10ms
`

type countingRunner struct {
	gen  int
	runs *sync.Map
}

func (r *countingRunner) Run(context.Context, backup.RunOptions) (*backup.Result, error) {
	v, _ := r.runs.LoadOrStore(r.gen, new(atomic.Int32))
	v.(*atomic.Int32).Add(1)
	return &backup.Result{}, nil
}

type fakeBuilder struct {
	builds atomic.Int32
	closed atomic.Int32
	runs   sync.Map
}

func (f *fakeBuilder) build(context.Context, *config.Config) (worker.Runner, func() error, error) {
	gen := int(f.builds.Add(1))
	return &countingRunner{gen: gen, runs: &f.runs}, func() error {
		f.closed.Add(1)
		return nil
	}, nil
}

func (f *fakeBuilder) runsOf(gen int) int32 {
	v, ok := f.runs.Load(gen)
	if !ok {
		return 0
	}
	return v.(*atomic.Int32).Load()
}

func writeConfig(t *testing.T, path, body string) *config.Config {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestDaemonRunsOnStartAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := writeConfig(t, path, serveYAML)
	fb := &fakeBuilder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d, err := NewDaemon(ctx, path, cfg, afero.NewOsFs(), logging.Nop(), nil, fb.build)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool { return fb.runsOf(1) == 1 }, 2*time.Second, 10*time.Millisecond)

	writeConfig(t, path, serveYAML+"\n# edited\n")
	assert.Eventually(t, func() bool { return fb.builds.Load() == 2 }, 3*time.Second, 10*time.Millisecond)

	d.mb.Put(worker.Job{Trigger: worker.TriggerCron, At: time.Now()})
	assert.Eventually(t, func() bool { return fb.runsOf(2) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(2), fb.closed.Load())
}

func TestReloadKeepsConfigOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := writeConfig(t, path, serveYAML)
	fb := &fakeBuilder{}

	d, err := NewDaemon(context.Background(), path, cfg, afero.NewOsFs(), logging.Nop(), nil, fb.build)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(baseYAML+"schedule:\n  cron: \"not a cron\"\n"), 0o644))
	assert.Error(t, d.Reload(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte(baseYAML), 0o644))
	assert.Error(t, d.Reload(context.Background()), "cron is required in serve mode")

	assert.Same(t, cfg, d.cfg)
	assert.Equal(t, int32(2), fb.builds.Load())
	assert.Equal(t, int32(1), fb.closed.Load())
}

func TestNewDaemonNeedsCron(t *testing.T) {
	cfg, err := config.Parse([]byte(baseYAML))
	require.NoError(t, err)
	fb := &fakeBuilder{}
	_, err = NewDaemon(context.Background(), "/etc/media-backup/config.yaml", cfg, afero.NewOsFs(), logging.Nop(), nil, fb.build)
	assert.Error(t, err)
	assert.Zero(t, fb.builds.Load())
}

func TestReloadKeepsLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := writeConfig(t, path, serveYAML)
	fb := &fakeBuilder{}
	log := logging.Nop()
	require.NoError(t, log.SetLevel("debug"))

	d, err := NewDaemon(context.Background(), path, cfg, afero.NewOsFs(), log, nil, fb.build, WithLevelOverride("debug"))
	require.NoError(t, err)

	writeConfig(t, path, serveYAML+"logging:\n  level: error\n")
	require.NoError(t, d.Reload(context.Background()))
	assert.Equal(t, zapcore.DebugLevel, log.Level())
}

func TestReloadAppliesFileLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := writeConfig(t, path, serveYAML)
	fb := &fakeBuilder{}
	log := logging.Nop()

	d, err := NewDaemon(context.Background(), path, cfg, afero.NewOsFs(), log, nil, fb.build)
	require.NoError(t, err)

	writeConfig(t, path, serveYAML+"logging:\n  level: error\n")
	require.NoError(t, d.Reload(context.Background()))
	assert.Equal(t, zapcore.ErrorLevel, log.Level())
}

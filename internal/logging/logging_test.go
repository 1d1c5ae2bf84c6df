package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleAndTeeSinks(t *testing.T) {
	var console, record bytes.Buffer

	base, err := New(Options{Level: "info", Console: &console})
	require.NoError(t, err)

	run := base.Tee(&record)
	run.Info("archive created", "size", 42)
	run.Debug("hidden")
	base.Warn("console only")

	assert.Contains(t, console.String(), "INFO archive created")
	assert.Contains(t, console.String(), `"size": 42`)
	assert.Contains(t, console.String(), "WARN console only")
	assert.NotContains(t, console.String(), "hidden")

	assert.Contains(t, record.String(), "INFO archive created")
	assert.NotContains(t, record.String(), "console only")
}

func TestColorOnlyOnConsole(t *testing.T) {
	var console, record bytes.Buffer

	base, err := New(Options{Level: "info", Console: &console, Color: true})
	require.NoError(t, err)
	base.Tee(&record).Error("boom")

	assert.Contains(t, console.String(), "\x1b[")
	assert.NotContains(t, record.String(), "\x1b[")
	assert.Contains(t, record.String(), "ERROR boom")
}

func TestSetLevelPropagates(t *testing.T) {
	var console bytes.Buffer
	base, err := New(Options{Level: "warn", Console: &console})
	require.NoError(t, err)

	child := base.With("run", "abc")
	child.Info("before")
	require.NoError(t, base.SetLevel("debug"))
	child.Debug("after")

	assert.NotContains(t, console.String(), "before")
	assert.Contains(t, console.String(), "DEBUG after")
	assert.Contains(t, console.String(), `"run": "abc"`)
}

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "", "warning", "error"} {
		_, err := ParseLevel(lvl)
		assert.NoError(t, err, lvl)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestColorEnabled(t *testing.T) {
	assert.True(t, ColorEnabled("always", nil))
	assert.False(t, ColorEnabled("never", nil))
	assert.False(t, ColorEnabled("auto", nil))
}

func TestNewRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "serve.log")
	w, err := NewRotatingFile(path, 1, 1)
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.FileExists(t, path)
}

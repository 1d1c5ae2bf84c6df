// Package logging provides the leveled logger used across media-backup.
// Messages go to up to three independent sinks: the console (optionally
// colored), the per-run log record and, in serve mode, a rotated daemon log.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Logger is the interface consumed by the rest of the application.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

const timeLayout = "2006-01-02 15:04:05"

type Options struct {
	Level string
	// Console receives colored or plain lines. Nil disables the console sink.
	Console io.Writer
	Color   bool
	// File receives plain lines, typically a rotated daemon log. Nil disables it.
	File io.Writer
}

// ZapLogger implements Logger on top of zap.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	core  zapcore.Core
	level zap.AtomicLevel
}

func New(opts Options) (*ZapLogger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	atom := zap.NewAtomicLevelAt(level)

	var cores []zapcore.Core
	if opts.Console != nil {
		cores = append(cores, zapcore.NewCore(newEncoder(opts.Color), zapcore.AddSync(opts.Console), atom))
	}
	if opts.File != nil {
		cores = append(cores, zapcore.NewCore(newEncoder(false), zapcore.AddSync(opts.File), atom))
	}
	return build(zapcore.NewTee(cores...), atom), nil
}

// Nop discards everything.
func Nop() *ZapLogger {
	return build(zapcore.NewNopCore(), zap.NewAtomicLevelAt(zapcore.InfoLevel))
}

func build(core zapcore.Core, atom zap.AtomicLevel) *ZapLogger {
	return &ZapLogger{
		sugar: zap.New(core).Sugar(),
		core:  core,
		level: atom,
	}
}

func newEncoder(color bool) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// Tee returns a logger that additionally writes plain lines to w at the same
// level. The receiver is left untouched.
func (l *ZapLogger) Tee(w io.Writer) *ZapLogger {
	fileCore := zapcore.NewCore(newEncoder(false), zapcore.AddSync(w), l.level)
	return build(zapcore.NewTee(l.core, fileCore), l.level)
}

// With returns a logger that attaches the given key/value pairs to every line.
func (l *ZapLogger) With(keysAndValues ...any) *ZapLogger {
	sugar := l.sugar.With(keysAndValues...)
	return &ZapLogger{sugar: sugar, core: sugar.Desugar().Core(), level: l.level}
}

// SetLevel changes the level of this logger and every logger derived from it.
func (l *ZapLogger) SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// Level reports the current minimum level.
func (l *ZapLogger) Level() zapcore.Level { return l.level.Level() }

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) { l.sugar.Debugw(msg, keysAndValues...) }
func (l *ZapLogger) Info(msg string, keysAndValues ...any)  { l.sugar.Infow(msg, keysAndValues...) }
func (l *ZapLogger) Warn(msg string, keysAndValues ...any)  { l.sugar.Warnw(msg, keysAndValues...) }
func (l *ZapLogger) Error(msg string, keysAndValues ...any) { l.sugar.Errorw(msg, keysAndValues...) }

// Sync flushes buffered output. Errors from syncing terminals are ignored.
func (l *ZapLogger) Sync() error {
	err := l.sugar.Sync()
	if err != nil && strings.Contains(err.Error(), "inappropriate ioctl") {
		return nil
	}
	return err
}

func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// ColorEnabled resolves a color mode ("auto", "always", "never") against f.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

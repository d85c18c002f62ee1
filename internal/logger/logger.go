package logger

import (
	"io"
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters (lumberjack semantics).
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes the orchestrator's own log output: a colored console
// handler plus an optional rotated file.
type Config struct {
	Level      string // debug | info | warn | error
	File       string // optional rotated log file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	NoColor    bool
}

func (c Config) level() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fileWriter returns the rotated writer for c.File.
func (c Config) fileWriter() io.Writer {
	return &lj.Logger{
		Filename:   c.File,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// New builds the logger: colored text on stderr, and when File is set the
// same records are duplicated into a rotated file without color codes.
func New(c Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}
	var console slog.Handler
	if c.NoColor {
		console = slog.NewTextHandler(os.Stderr, opts)
	} else {
		console = NewColorTextHandler(os.Stderr, opts)
	}
	if c.File == "" {
		return slog.New(console)
	}
	file := slog.NewTextHandler(c.fileWriter(), opts)
	return slog.New(teeHandler{console, file})
}

// Setup installs the configured logger as the process default.
func Setup(c Config) *slog.Logger {
	l := New(c)
	slog.SetDefault(l)
	return l
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

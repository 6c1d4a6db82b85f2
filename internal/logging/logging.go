// Package logging wires up structured logging the way the myclaw
// teacher-adjacent stack does: zerolog to stderr by default, a
// lumberjack-rotated file when Options.FilePath is set. Loggers are constructed
// and injected explicitly — never a package-level global — so the
// sync engine and background loop can be instantiated multiple times
// in tests without cross-talk.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// FilePath, if set, routes logs to a rotated file instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Level      zerolog.Level
}

// New builds a zerolog.Logger per Options. The returned logger never
// receives key material, passphrases, or decrypted identity bytes —
// callers must not log those fields (spec.md §5).
func New(opts Options) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if opts.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    nonZero(opts.MaxSizeMB, 10),
			MaxBackups: nonZero(opts.MaxBackups, 5),
			MaxAge:     nonZero(opts.MaxAgeDays, 28),
		}
	}

	level := opts.Level
	if level == 0 {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func nonZero(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

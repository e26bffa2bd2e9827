// Package logger provides slog helpers for the app.
package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/handsomefox/title-catalog/internal/env"
)

type Options struct {
	Level slog.Level

	// File, when set, receives a copy of every record with size based rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a JSON logger in production and a text logger otherwise.
// The returned closer flushes the rotated file, if any.
func New(opts Options) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		out = io.MultiWriter(os.Stderr, rotated)
		closer = rotated
	}
	return slog.New(NewHandler(out, env.Current, opts.Level)), closer
}

func NewHandler(w io.Writer, e env.Environment, level slog.Level) slog.Handler {
	hopts := &slog.HandlerOptions{Level: level}
	if e == env.Production {
		hopts.AddSource = true
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("err", "nil")
	}
	return slog.String("err", err.Error())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

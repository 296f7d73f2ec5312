package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the sinks built by New.
type Options struct {
	// File is the path of the rotating JSON log. Empty disables the file sink.
	File string
	// Debug lowers the level to DEBUG and mirrors records to Stderr.
	Debug bool
	// Stderr overrides the console writer; defaults to os.Stderr.
	Stderr io.Writer
}

// New builds the application logger. Records go as JSON to a size-rotated
// file; in debug mode they are also printed to the console through
// charmbracelet/log. The returned closer releases the file handle.
func New(opts Options) (*SlogLogger, io.Closer, error) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, err
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		closer = rotating
		handlers = append(handlers, slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: level}))
	}

	if opts.Debug || opts.File == "" {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		console := charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			Level:           charmLevel(level),
			Prefix:          "weeklog",
		})
		handlers = append(handlers, console)
	}

	var h slog.Handler = fanout(handlers)
	if len(handlers) == 1 {
		h = handlers[0]
	}
	return NewSlogLogger(slog.New(h)), closer, nil
}

func charmLevel(l slog.Level) charmlog.Level {
	if l <= slog.LevelDebug {
		return charmlog.DebugLevel
	}
	return charmlog.InfoLevel
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

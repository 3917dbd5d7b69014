package common

import (
	"io"
	"log/slog"
	"os"
)

// LoggingOpts selects the handler and the attributes added to every record.
type LoggingOpts struct {
	Debug   bool
	JSON    bool
	Service string
	Version string

	// Output defaults to stderr.
	Output io.Writer
}

// SetupLogger returns a text or JSON slog logger writing to opts.Output,
// or stderr when it is nil.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel, AddSource: opts.Debug}
	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(out, handlerOpts))
	} else {
		log = slog.New(slog.NewTextHandler(out, handlerOpts))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}
	return log
}

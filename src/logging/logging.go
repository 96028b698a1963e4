package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// TimestampFormat matches the day-first stamps of the backup log.
const TimestampFormat = "02-01-2006 15:04:05"

// Options describes where and how the process logs.
type Options struct {
	Level  string
	Format string // text|json
	File   string // appended to; empty or "-" disables
	Stderr io.Writer
}

// New builds the process logger. Output goes to Stderr and, when File is set, is
// appended to File as well. The returned close func releases the file.
func New(opts Options) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	noop := func() error { return nil }

	level := opts.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, noop, err
	}
	log.SetLevel(lvl)

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	out := stderr
	closeFn := noop
	toFile := opts.File != "" && opts.File != "-"
	if toFile {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, noop, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, noop, fmt.Errorf("open log file %s: %w", opts.File, err)
		}
		out = io.MultiWriter(stderr, f)
		closeFn = f.Close
	}
	log.SetOutput(out)

	switch opts.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: TimestampFormat})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: TimestampFormat,
			// Escape codes would end up in the log file.
			DisableColors: toFile,
		})
	default:
		_ = closeFn()
		return nil, noop, fmt.Errorf("unsupported log format %q", opts.Format)
	}
	return log, closeFn, nil
}

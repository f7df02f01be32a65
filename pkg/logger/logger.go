// Package logger builds the process-wide zerolog logger.
//
// main calls Init once and passes the returned logger down explicitly. Init
// also installs it as zerolog's default context logger.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// Pretty switches to coloured console output for local runs.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service is attached to every entry. Defaults to "rental-api".
	Service string
}

const defaultService = "rental-api"

var (
	root zerolog.Logger
	once sync.Once
)

// Init configures the root logger on the first call and returns it. Later
// calls return the same logger and ignore their options.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		lvl := parseLevel(opts.Level)
		zerolog.SetGlobalLevel(lvl)

		root = newLogger(opts, lvl)
		zerolog.DefaultContextLogger = &root
	})
	return root
}

func newLogger(opts Options, lvl zerolog.Level) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	service := opts.Service
	if service == "" {
		service = defaultService
	}
	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Caller().
		Logger()
}

// Reset forgets the root logger so the next Init rebuilds it. Tests only.
func Reset() {
	once = sync.Once{}
	root = zerolog.Logger{}
	zerolog.DefaultContextLogger = nil
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

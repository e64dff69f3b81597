// Package monitoring holds the logging streams shared by the motionscript
// packages.
//
// Three streams exist, configured together with SetLogWriters:
//
//   - ops: actionable warnings, errors and lifecycle events
//   - diag: day-to-day diagnostics and tuning context
//   - trace: high-frequency per-poll telemetry
//
// Each stream is a zerolog.Logger tagged with a "stream" field. A nil
// writer mutes the stream.
package monitoring

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   *zerolog.Logger
	diagLogger  *zerolog.Logger
	traceLogger *zerolog.Logger
)

func init() {
	SetLogWriters(LogWriters{Ops: os.Stderr})
}

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger("ops", w.Ops)
	diagLogger = newLogger("diag", w.Diag)
	traceLogger = newLogger("trace", w.Trace)
}

func newLogger(stream string, w io.Writer) *zerolog.Logger {
	if w == nil {
		return nil
	}
	l := zerolog.New(w).With().Timestamp().Str("stream", stream).Logger()
	return &l
}

// Logf is the package-level message sink used by components that only need
// printf-style output (migrations, CLI progress). It writes to the ops stream
// by default and may be replaced with SetLogger.
var Logf func(format string, v ...interface{}) = Opsf

// SetLogger replaces Logf. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) {
	emit(stream(&opsLogger), zerolog.InfoLevel, format, args...)
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) {
	emit(stream(&diagLogger), zerolog.DebugLevel, format, args...)
}

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) {
	emit(stream(&traceLogger), zerolog.DebugLevel, format, args...)
}

func stream(p **zerolog.Logger) *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return *p
}

func emit(l *zerolog.Logger, level zerolog.Level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.WithLevel(level).Msg(fmt.Sprintf(format, args...))
}

// Setup builds the application logger used by the CLI. Level names follow
// zerolog ("trace", "debug", "info", "warn", "error"); unknown names fall back
// to info. When console is set output is human readable instead of JSON.
func Setup(level string, w io.Writer, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// WritersForLevel maps an application log level to stream writers: ops is
// always on, diag from debug and trace only at trace level.
func WritersForLevel(level string, w io.Writer) LogWriters {
	out := LogWriters{Ops: w}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		out.Diag = w
		out.Trace = w
	case "debug":
		out.Diag = w
	}
	return out
}

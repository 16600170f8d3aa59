package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Process-wide leveled logger shared by the gateway and resolver binaries.
// Output is logfmt-style key=value lines from log/slog.

// LevelFatal sits above slog.LevelError; Fatalf always logs and exits.
const LevelFatal = slog.Level(12)

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	logger = newLogger(os.Stdout)
	exit   = os.Exit
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelFatal {
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	}))
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Unknown values select info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	case "fatal":
		level.Set(LevelFatal)
	default:
		level.Set(slog.LevelInfo)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

func logf(l slog.Level, format string, v ...interface{}) {
	mu.RLock()
	lg := logger
	mu.RUnlock()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { logf(slog.LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(slog.LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(slog.LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(slog.LevelError, format, v...) }

func Fatalf(format string, v ...interface{}) {
	logf(LevelFatal, format, v...)
	exit(1)
}

// LevelString returns the current level as text.
func LevelString() string {
	switch l := level.Level(); {
	case l >= LevelFatal:
		return "fatal"
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// Package logging defines the minimal printf-style logging contract used by
// the core packages, plus a file-backed component logger for debug output.
// Keeping the interface here lets components depend on logging without
// pulling in the observability stack.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"
)

// Logger defines a minimal, printf-style logging contract.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	fileLoggerOnce sync.Once
	fileLogger     *componentLogger
)

// componentLogger writes leveled, timestamped lines to a shared debug file.
// CLI surfaces use it so stdout stays clean for results.
type componentLogger struct {
	mu        sync.Mutex
	out       *log.Logger
	level     Level
	component string
}

// NewComponentLogger returns the shared debug-file logger scoped to a
// component. When the debug file cannot be opened the logger is a no-op.
func NewComponentLogger(component string) Logger {
	fileLoggerOnce.Do(func() {
		fileLogger = &componentLogger{level: LevelDebug}
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		dir := filepath.Join(home, ".quartermaster")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return
		}
		f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		fileLogger.out = log.New(f, "", 0)
	})
	return &componentLogger{
		out:       fileLogger.out,
		level:     fileLogger.level,
		component: component,
	}
}

func (l *componentLogger) log(level Level, tag, format string, args ...any) {
	if l.out == nil || level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	l.out.Printf("[%s] [%s] [%s] %s", ts, tag, l.component, fmt.Sprintf(format, args...))
}

func (l *componentLogger) Debug(format string, args ...any) {
	l.log(LevelDebug, "DEBUG", format, args...)
}

func (l *componentLogger) Info(format string, args ...any) {
	l.log(LevelInfo, "INFO", format, args...)
}

func (l *componentLogger) Warn(format string, args ...any) {
	l.log(LevelWarn, "WARN", format, args...)
}

func (l *componentLogger) Error(format string, args ...any) {
	l.log(LevelError, "ERROR", format, args...)
}

// Package log writes leveled, categorized debug logs for vgrid. Nothing is
// written until Init or InitWriter installs a logger; the CLI does this for
// --debug or VGRID_DEBUG.
package log

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values map to LevelDebug.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelDebug
	}
}

// Category groups related log messages.
type Category string

const (
	CatGrid      Category = "grid"      // frame passes, measurement, refresh
	CatDimension Category = "dimension" // size providers and subscribers
	CatPool      Category = "pool"      // render target recycling
	CatCache     Category = "cache"     // content cache and cache managers
	CatRender    Category = "render"    // renderer registry and built-in renderers
	CatConfig    Category = "config"    // configuration loading/saving
	CatWatcher   Category = "watcher"   // file watchers
	CatDB        Category = "db"        // sqlite data source
	CatUI        Category = "ui"        // terminal surface
	CatTracing   Category = "tracing"   // span export
)

// Options filters what a logger writes.
type Options struct {
	Level Level

	// Categories limits output to the named categories. Empty logs all.
	Categories []Category
}

// Logger writes one line per entry:
//
//	2025-12-06T10:45:00.123 WARN  [grid] message key=value key2="two words"
type Logger struct {
	mu       sync.Mutex
	w        io.Writer
	closer   io.Closer
	disabled bool
	min      Level
	only     map[Category]bool
	now      func() time.Time
}

var current atomic.Pointer[Logger]

func newLogger(w io.Writer, opts Options) *Logger {
	l := &Logger{w: w, min: opts.Level, now: time.Now}
	if len(opts.Categories) > 0 {
		l.only = make(map[Category]bool, len(opts.Categories))
		for _, c := range opts.Categories {
			l.only[c] = true
		}
	}
	return l
}

// Init appends logs to the file at path. The returned cleanup closes the
// file and uninstalls the logger.
func Init(path string, opts Options) (func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: path is the user's debug log
	if err != nil {
		return nil, fmt.Errorf("opening log %s: %w", path, err)
	}
	l := newLogger(f, opts)
	l.closer = f
	current.Store(l)
	return func() {
		current.CompareAndSwap(l, nil)
		_ = f.Close()
	}, nil
}

// InitWriter installs a logger writing to w. Tests use it to capture output.
func InitWriter(w io.Writer, opts Options) {
	current.Store(newLogger(w, opts))
}

// Reset uninstalls the logger.
func Reset() {
	current.Store(nil)
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	if l := current.Load(); l != nil {
		l.mu.Lock()
		l.disabled = !enabled
		l.mu.Unlock()
	}
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	if l := current.Load(); l != nil {
		l.mu.Lock()
		l.min = level
		l.mu.Unlock()
	}
}

// Enabled reports whether an entry would be written. Hot paths check it
// before building fields.
func Enabled(level Level, cat Category) bool {
	l := current.Load()
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accepts(level, cat)
}

func (l *Logger) accepts(level Level, cat Category) bool {
	if l.disabled || level < l.min {
		return false
	}
	return l.only == nil || l.only[cat]
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	write(LevelDebug, cat, msg, fields)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	write(LevelInfo, cat, msg, fields)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	write(LevelWarn, cat, msg, fields)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	write(LevelError, cat, msg, fields)
}

// ErrorErr logs at error level with err appended as the "error" field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	text := "<nil>"
	if err != nil {
		text = err.Error()
	}
	write(LevelError, cat, msg, append(fields, "error", text))
}

func write(level Level, cat Category, msg string, fields []any) {
	l := current.Load()
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.accepts(level, cat) {
		return
	}

	var b strings.Builder
	b.WriteString(l.now().Format("2006-01-02T15:04:05.000"))
	fmt.Fprintf(&b, " %-5s [%s] %s", level, cat, msg)
	for i := 0; i < len(fields); i += 2 {
		b.WriteByte(' ')
		fmt.Fprint(&b, fields[i])
		b.WriteByte('=')
		if i+1 == len(fields) {
			b.WriteString("<missing>")
			break
		}
		b.WriteString(formatValue(fields[i+1]))
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(l.w, b.String())
}

// formatValue quotes values that would otherwise break key=value parsing.
func formatValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

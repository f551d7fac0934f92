// Package logging provides component loggers backed by charmbracelet/log,
// writing to a rotating file and optionally to the console.
//
// Loggers can be obtained before Init; they stay silent until Init is
// called and then start writing to the configured sinks:
//
//	var logger = logging.Get("catalog")
//
//	func main() {
//	    if err := logging.Init(logging.DefaultConfig()); err != nil { ... }
//	    defer logging.Close()
//	    logger.Info("catalog loaded", "nodes", n)
//	}
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to level overrides.
	Components map[string]string

	// ConsoleLevel enables stderr output at the given level. Empty disables it.
	ConsoleLevel string

	// TUIMode silences the console and keeps recent entries in a buffer
	// for the browser's log pane.
	TUIMode bool
}

// Entry is a single log line as kept by the TUI buffer.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// Logger is a component logger. The zero value is not usable; use Get.
type Logger struct {
	component string
	file      *log.Logger
	console   *log.Logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, keyvals ...any) { l.log(LevelDebug, msg, keyvals...) }

// Info logs an info message.
func (l *Logger) Info(msg string, keyvals ...any) { l.log(LevelInfo, msg, keyvals...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, keyvals ...any) { l.log(LevelWarn, msg, keyvals...) }

// Error logs an error message.
func (l *Logger) Error(msg string, keyvals ...any) { l.log(LevelError, msg, keyvals...) }

func (l *Logger) log(level Level, msg string, keyvals ...any) {
	global.mu.RLock()
	file, console, buffer := l.file, l.console, global.buffer
	threshold := global.levelFor(l.component)
	global.mu.RUnlock()

	write(file, level, msg, keyvals...)
	if console != nil {
		write(console, level, msg, keyvals...)
	}
	if buffer != nil && level >= threshold {
		buffer.Add(Entry{Time: time.Now(), Level: level, Component: l.component, Message: msg})
	}
}

func write(l *log.Logger, level Level, msg string, keyvals ...any) {
	switch level {
	case LevelDebug:
		l.Debug(msg, keyvals...)
	case LevelInfo:
		l.Info(msg, keyvals...)
	case LevelWarn:
		l.Warn(msg, keyvals...)
	case LevelError:
		l.Error(msg, keyvals...)
	}
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	console     bool
	consoleLvl  Level
	buffer      *Buffer
	loggers     map[string]*Logger
}

func (s *state) levelFor(component string) Level {
	if lvl, ok := s.components[component]; ok {
		return lvl
	}
	return s.level
}

var global = &state{
	level:      LevelInfo,
	components: map[string]Level{},
	loggers:    map[string]*Logger{},
}

// Init configures the sinks. Loggers handed out before Init are rewired in
// place.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}
	var consoleLvl Level
	console := cfg.ConsoleLevel != "" && !cfg.TUIMode
	if console {
		if consoleLvl, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if global.writer != nil {
		_ = global.writer.Close()
	}
	global.writer = writer
	global.level = level
	global.components = components
	global.console = console
	global.consoleLvl = consoleLvl
	global.buffer = nil
	if cfg.TUIMode {
		global.buffer = NewBuffer(DefaultBufferSize)
	}
	global.initialized = true

	for _, l := range global.loggers {
		global.wire(l)
	}
	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *Logger {
	global.mu.RLock()
	l, ok := global.loggers[component]
	global.mu.RUnlock()
	if ok {
		return l
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	if l, ok := global.loggers[component]; ok {
		return l
	}
	l = &Logger{component: component}
	global.wire(l)
	global.loggers[component] = l
	return l
}

// wire points l at the current sinks. Must be called with s.mu held.
func (s *state) wire(l *Logger) {
	level := s.levelFor(l.component)
	if !s.initialized {
		l.file = log.NewWithOptions(io.Discard, log.Options{Level: level.charm(), Prefix: l.component})
		l.console = nil
		return
	}

	l.file = log.NewWithOptions(s.writer, log.Options{
		Level:           level.charm(),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          l.component,
	})
	l.console = nil
	if s.console {
		l.console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           s.consoleLvl.charm(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          l.component,
		})
	}
}

// Close flushes and closes the log file. Loggers go silent again.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if !global.initialized {
		return nil
	}
	global.initialized = false
	global.buffer = nil
	for _, l := range global.loggers {
		global.wire(l)
	}

	w := global.writer
	global.writer = nil
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// RecentEntries returns up to n of the newest buffered entries, oldest
// first. It returns nil outside TUI mode.
func RecentEntries(n int) []Entry {
	global.mu.RLock()
	b := global.buffer
	global.mu.RUnlock()
	if b == nil {
		return nil
	}
	return b.Last(n)
}

// DefaultLogPath returns $XDG_STATE_HOME/superduck/superduck.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "superduck", "superduck.log")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}

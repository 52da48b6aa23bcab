package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	// mu serializes Init, SetOutput and Close; readers load the logger atomically
	mu      sync.Mutex
	current atomic.Pointer[zerolog.Logger]
	logFile *os.File
)

func init() {
	nop := zerolog.Nop()
	current.Store(&nop)
}

func load() *zerolog.Logger {
	return current.Load()
}

// swap installs l and closes the previously open log file, if any
func swap(l zerolog.Logger, f *os.File) {
	current.Store(&l)
	old := logFile
	logFile = f
	if old != nil {
		old.Close()
	}
}

// Init configures the global logger. Records go to stderr through a
// console writer and, when path is set, to a JSON log file as well.
func Init(path, level string) error {
	mu.Lock()
	defer mu.Unlock()

	lvl := parseLevel(level)
	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}}

	var f *os.File
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		opened, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		f = opened
		writers = append(writers, f)
	}

	swap(zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp().Logger(), f)
	return nil
}

// SetOutput replaces the global logger with one writing JSON to w
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	swap(zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger(), nil)
}

// Get returns the global logger for structured records
func Get() *zerolog.Logger {
	return load()
}

func Debug(format string, v ...interface{}) {
	load().Debug().Msgf(format, v...)
}

func Info(format string, v ...interface{}) {
	load().Info().Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	load().Warn().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	load().Error().Msgf(format, v...)
}

// Close flushes and closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()
	swap(zerolog.Nop(), nil)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "OFF", "DISABLED":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

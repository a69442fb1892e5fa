package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// logEntry is one buffered message
type logEntry struct {
	level   LogLevel
	message string
}

// LogBuffer is a leveled logger that buffers messages until the
// configured verbosity is known, then flushes and writes through.
// Errors always reach the writer immediately once flushed.
type LogBuffer struct {
	mu       sync.Mutex
	entries  []logEntry
	flushed  bool
	minLevel LogLevel
	out      io.Writer
}

// NewLogBuffer creates a buffering logger. Until Flush is called,
// every message is held in memory.
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{out: os.Stderr}
}

// Flush emits every buffered message at or above min to out and
// switches the buffer into write-through mode.
func (b *LogBuffer) Flush(out io.Writer, min LogLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.out = out
	b.minLevel = min
	b.flushed = true

	for _, e := range b.entries {
		if e.level >= min {
			fmt.Fprintf(out, "%s: %s\n", e.level.String(), e.message)
		}
	}
	b.entries = nil
}

func (b *LogBuffer) emit(level LogLevel, format string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.flushed {
		b.entries = append(b.entries, logEntry{level: level, message: fmt.Sprintf(format, args...)})
		return
	}
	if level < b.minLevel {
		return
	}
	fmt.Fprintf(b.out, "%s: "+format+"\n", append([]interface{}{level.String()}, args...)...)
}

func (b *LogBuffer) Debug(format string, args ...interface{}) {
	b.emit(LogLevelDebug, format, args...)
}

func (b *LogBuffer) Info(format string, args ...interface{}) {
	b.emit(LogLevelInfo, format, args...)
}

func (b *LogBuffer) Warn(format string, args ...interface{}) {
	b.emit(LogLevelWarn, format, args...)
}

func (b *LogBuffer) Error(format string, args ...interface{}) {
	b.emit(LogLevelError, format, args...)
}

package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents an enumeration of log levels
type LogLevel int

const (
	Critical LogLevel = 50
	Fatal    LogLevel = Critical
	Error    LogLevel = 40
	Warning  LogLevel = 30
	Info     LogLevel = 20
	Debug    LogLevel = 10
	NotSet   LogLevel = 0
)

var levelNames = map[string]LogLevel{
	"CRITICAL": Critical,
	"ERROR":    Error,
	"WARNING":  Warning,
	"INFO":     Info,
	"DEBUG":    Debug,
}

// ParseLogLevel converts DEBUG, INFO, WARNING, ERROR or CRITICAL
// (case-insensitive) into a LogLevel.
func ParseLogLevel(name string) (LogLevel, error) {
	level, ok := levelNames[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return NotSet, fmt.Errorf("log level must be one of DEBUG, INFO, WARNING, ERROR, CRITICAL, got %q", name)
	}
	return level, nil
}

// Logger provides leveled logging with key-value context. A Logger is
// created once at startup and handed to the components that need it;
// With derives component loggers sharing the same output and level.
type Logger struct {
	prefix string
	logger *log.Logger
	state  *levelState
}

type levelState struct {
	mu    sync.RWMutex
	level LogLevel
}

// NewLogger creates a new logger with a given prefix writing to stdout
func NewLogger(prefix string, logLevel ...LogLevel) *Logger {
	return NewLoggerWithWriter(os.Stdout, prefix, logLevel...)
}

// NewLoggerWithWriter creates a new logger writing to w
func NewLoggerWithWriter(w io.Writer, prefix string, logLevel ...LogLevel) *Logger {
	logLevelValue := Warning
	if len(logLevel) > 0 {
		logLevelValue = logLevel[0]
	}
	return &Logger{
		prefix: prefix,
		logger: log.New(w, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
		state:  &levelState{level: logLevelValue},
	}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return NewLoggerWithWriter(io.Discard, "nop", Critical+1)
}

// With returns a logger for a sub-component, sharing output and level
func (l *Logger) With(component string) *Logger {
	prefix := l.prefix + "/" + component
	return &Logger{
		prefix: prefix,
		logger: log.New(l.logger.Writer(), fmt.Sprintf("[%s] ", prefix), l.logger.Flags()),
		state:  l.state,
	}
}

// SetLogLevel sets the logging level
func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.level = logLevel
}

// Enabled reports whether messages at level are written
func (l *Logger) Enabled(level LogLevel) bool {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.level <= level
}

// Critical logs a critical message
func (l *Logger) Critical(msg string, keyvals ...interface{}) {
	l.output(Critical, "CRITICAL", msg, keyvals...)
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.output(Error, "ERROR", msg, keyvals...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.output(Warning, "WARN", msg, keyvals...)
}

// Info logs an informational message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.output(Info, "INFO", msg, keyvals...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.output(Debug, "DEBUG", msg, keyvals...)
}

func (l *Logger) output(level LogLevel, name, msg string, keyvals ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	l.logger.Println(l.formatMessage(name, msg, keyvals...))
}

// formatMessage formats a message with key-value pairs
func (l *Logger) formatMessage(level, msg string, keyvals ...interface{}) string {
	formatted := fmt.Sprintf("[%s] %s", level, msg)
	for i := 0; i < len(keyvals); i += 2 {
		if i+1 < len(keyvals) {
			formatted += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
		}
	}
	return formatted
}

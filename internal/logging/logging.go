// Package logging provides structured logging for the assistant.
//
// It offers leveled, named component loggers with optional key-value
// fields. Loggers are immutable: WithField returns a new instance, so
// they can be shared freely across components.
//
//	logging.Initialize("info")
//	logger := logging.GetLogger("orchestrator")
//	logger.InfoWithFields("mensaje procesado",
//	    logging.Field("domain", "jira"),
//	    logging.Field("duration_ms", elapsed.Milliseconds()),
//	)
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// LogField represents a structured logging field.
type LogField struct {
	Key   string
	Value interface{}
}

// Field creates a structured logging field.
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// Logger writes leveled, optionally structured log lines for one component.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
}

var (
	globalLevel = INFO
	initOnce    sync.Once
	levelMu     sync.RWMutex
	// exitFunc is called by Fatal. Overridable for testing.
	exitFunc = os.Exit
)

// Initialize sets the global default log level. Unknown level strings
// fall back to INFO.
func Initialize(levelStr string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		level = INFO
	}
	levelMu.Lock()
	globalLevel = level
	levelMu.Unlock()
	return err
}

// ParseLevel converts a level name to its LogLevel value.
func ParseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %q (must be DEBUG, INFO, WARN, ERROR, or FATAL)", levelStr)
	}
}

// GetLogger returns a named logger using the global level.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {})
	levelMu.RLock()
	level := globalLevel
	levelMu.RUnlock()
	return &Logger{
		level:  level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// WithField returns a new logger that includes the given field on every line.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	clone := &Logger{
		level:  l.level,
		name:   l.name,
		fields: make(map[string]interface{}, len(l.fields)+1),
	}
	for k, v := range l.fields {
		clone.fields[k] = v
	}
	clone.fields[key] = value
	return clone
}

// WithName returns a new logger with a different component name.
func (l *Logger) WithName(name string) *Logger {
	clone := &Logger{
		level:  l.level,
		name:   name,
		fields: make(map[string]interface{}, len(l.fields)),
	}
	for k, v := range l.fields {
		clone.fields[k] = v
	}
	return clone
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return level >= l.level
}

// Debug logs a debug message with printf-style arguments.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf(DEBUG, msg, args...)
	}
}

// Info logs an informational message with printf-style arguments.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf(INFO, msg, args...)
	}
}

// Warn logs a warning message with printf-style arguments.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf(WARN, msg, args...)
	}
}

// Error logs an error message with printf-style arguments.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf(ERROR, msg, args...)
	}
}

// ErrorWithErr logs an error message with an error value appended.
func (l *Logger) ErrorWithErr(msg string, err error) {
	if l.shouldLog(ERROR) {
		l.logf(ERROR, "%s - %v", msg, err)
	}
}

// Fatal logs a fatal message and exits with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.logf(FATAL, msg, args...)
	exitFunc(1)
}

// DebugWithFields logs a debug message with structured fields.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logFields(DEBUG, msg, fields...)
	}
}

// InfoWithFields logs an info message with structured fields.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logFields(INFO, msg, fields...)
	}
}

// WarnWithFields logs a warning message with structured fields.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logFields(WARN, msg, fields...)
	}
}

// ErrorWithFields logs an error message with structured fields.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logFields(ERROR, msg, fields...)
	}
}

func (l *Logger) logf(level LogLevel, msg string, args ...interface{}) {
	l.write(level, fmt.Sprintf(msg, args...), l.fields)
}

func (l *Logger) logFields(level LogLevel, msg string, fields ...LogField) {
	if len(fields) == 0 {
		l.write(level, msg, l.fields)
		return
	}
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	l.write(level, msg, merged)
}

func (l *Logger) write(level LogLevel, msg string, fields map[string]interface{}) {
	line := fmt.Sprintf("[%s] [%s] %s: %s", timestamp(), levelNames[level], l.name, msg)
	if len(fields) > 0 {
		line += " |"
		for k, v := range fields {
			line += fmt.Sprintf(" %s=%v", k, v)
		}
	}
	fmt.Fprintln(os.Stderr, line)
}

// timestamp returns the log line timestamp in RFC3339. The LOG_TIMESTAMP
// environment variable overrides it for deterministic test output.
func timestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}

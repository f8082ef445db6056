package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Logger is a wrapper around the standard library logger
type Logger struct {
	*log.Logger
	scope string
}

// New creates a new logger with the given scope (a component name, a user or a chat)
func New(scope string) *Logger {
	return NewWithWriter(os.Stdout, scope)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, scope string) *Logger {
	return &Logger{
		Logger: log.New(w, "", 0),
		scope:  scope,
	}
}

// With returns a logger for a narrower scope, e.g. "web/user:3"
func (l *Logger) With(scope string) *Logger {
	if l.scope != "" {
		scope = l.scope + "/" + scope
	}
	return &Logger{Logger: l.Logger, scope: scope}
}

// formatMessage formats a log message with timestamp and scope
func (l *Logger) formatMessage(level, format string, v ...interface{}) string {
	timestamp := time.Now().Format(time.RFC3339)
	message := fmt.Sprintf(format, v...)

	if l.scope != "" {
		return fmt.Sprintf("[%s] [%s] [Scope: %s] %s", timestamp, level, l.scope, message)
	}

	return fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.Logger.Println(l.formatMessage("INFO", format, v...))
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.Logger.Println(l.formatMessage("ERROR", format, v...))
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.Logger.Println(l.formatMessage("DEBUG", format, v...))
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.Logger.Println(l.formatMessage("WARN", format, v...))
}

// Global logger instance for application-wide logging
var Global = New("")

// SetGlobal sets the global logger
func SetGlobal(logger *Logger) {
	Global = logger
}

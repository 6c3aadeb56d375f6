// Package logging provides the logrus backed implementation of interfaces.Logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	"github.com/sirupsen/logrus"
)

// Logger adapts a logrus logger to interfaces.Logger
type Logger struct {
	log *logrus.Logger
}

// New creates a logger writing text lines with full timestamps to out
func New(out io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{log: l}
}

// SetLevel sets the minimum level: debug, info, warn(ing), error or fatal.
func (l *Logger) SetLevel(level string) error {
	// trace and panic levels are not used
	switch strings.ToLower(level) {
	case "debug":
		l.log.SetLevel(logrus.DebugLevel)
	case "info":
		l.log.SetLevel(logrus.InfoLevel)
	case "warning", "warn":
		l.log.SetLevel(logrus.WarnLevel)
	case "error":
		l.log.SetLevel(logrus.ErrorLevel)
	case "fatal":
		l.log.SetLevel(logrus.FatalLevel)
	default:
		return fmt.Errorf("bad log level %q", level)
	}
	return nil
}

// Logrus exposes the underlying logger
func (l *Logger) Logrus() *logrus.Logger {
	return l.log
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.entry(fields).Debug(msg)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.entry(fields).Info(msg)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.entry(fields).Warn(msg)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.entry(fields).Error(msg)
}

func (l *Logger) entry(fields []interfaces.Field) *logrus.Entry {
	f := make(logrus.Fields, len(fields))
	for _, field := range fields {
		f[field.Key] = field.Value
	}
	return l.log.WithFields(f)
}

// LeveledLogger adapts an interfaces.Logger to retryablehttp.LeveledLogger.
type LeveledLogger struct {
	Logger interfaces.Logger
}

// Error logs error messages
func (l LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.Error(msg, pairs(keysAndValues)...)
}

// Info logs retry client activity at debug level
func (l LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug(msg, pairs(keysAndValues)...)
}

// Debug logs debug-level messages
func (l LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug(msg, pairs(keysAndValues)...)
}

// Warn logs warning messages
func (l LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.Warn(msg, pairs(keysAndValues)...)
}

func pairs(keysAndValues []interface{}) []interfaces.Field {
	fields := make([]interfaces.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, interfaces.F(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}

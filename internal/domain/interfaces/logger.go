// Package interfaces defines core domain contracts.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

import "time"

// Logger is the structured logger every layer writes to. Implementations attach
// fields as key/value pairs; the message stays constant so logs can be grouped.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value pair attached to a log line
type Field struct {
	Key   string
	Value interface{}
}

// F builds an arbitrary field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err builds the "error" field
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Package builds the "package" field from an upstream id or identity string
func Package(id string) Field {
	return Field{Key: "package", Value: id}
}

// Duration builds the "duration" field, rounded to milliseconds
func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d.Round(time.Millisecond).String()}
}

// NoOpLogger discards everything; tests use it when log output is irrelevant.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ string, _ ...Field) {}
func (n *NoOpLogger) Info(_ string, _ ...Field)  {}
func (n *NoOpLogger) Warn(_ string, _ ...Field)  {}
func (n *NoOpLogger) Error(_ string, _ ...Field) {}

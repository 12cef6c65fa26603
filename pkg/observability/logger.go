// Package observability defines the structured logging surface used by
// generators and the idgen command.
package observability

import (
	"context"
	"time"
)

type SanitizerFunc func(key string, value any) any

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`

	Scheme    string `json:"scheme,omitempty"`
	Generator string `json:"generator,omitempty"`
}

// StructuredLogger is a message plus map-fields logger with lifecycle and
// health reporting.
type StructuredLogger interface {
	Debug(message string, fields ...map[string]any)
	Info(message string, fields ...map[string]any)
	Warn(message string, fields ...map[string]any)
	Error(message string, fields ...map[string]any)

	WithField(key string, value any) StructuredLogger
	WithFields(fields map[string]any) StructuredLogger

	// WithScheme scopes entries to an identifier scheme.
	WithScheme(scheme string) StructuredLogger
	// WithGenerator scopes entries to one generator instance.
	WithGenerator(id string) StructuredLogger

	Flush(ctx context.Context) error
	Close() error
	IsHealthy() bool
	GetStats() LoggerStats
}

type LoggerStats struct {
	LastFlush     time.Time     `json:"last_flush"`
	LastError     string        `json:"last_error,omitempty"`
	EntriesLogged int64         `json:"entries_logged"`
	FlushCount    int64         `json:"flush_count"`
	ErrorCount    int64         `json:"error_count"`
	AverageFlush  time.Duration `json:"average_flush_time"`
}

// LoggerConfig configures logger implementations.
type LoggerConfig struct {
	Format       string `json:"format" yaml:"format"`
	Level        string `json:"level" yaml:"level"`
	EnableStack  bool   `json:"enable_stack" yaml:"enable_stack"`
	EnableCaller bool   `json:"enable_caller" yaml:"enable_caller"`
}

type LoggerFactory interface {
	CreateConsoleLogger(config LoggerConfig) (StructuredLogger, error)
	CreateTestLogger() StructuredLogger
	CreateNoOpLogger() StructuredLogger
}

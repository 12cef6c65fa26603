// Package logger holds the process-wide structured logger. Generators built
// without an explicit logger use it.
package logger

import (
	"sync"

	"github.com/theory-cloud/idtheory/pkg/observability"
)

var (
	globalMu     sync.RWMutex
	globalLogger observability.StructuredLogger = observability.NewNoOpLogger()
)

// Logger returns the global structured logger singleton.
func Logger() observability.StructuredLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the global structured logger singleton and returns the
// previous one.
//
// Passing nil resets the logger to a no-op implementation.
func SetLogger(next observability.StructuredLogger) observability.StructuredLogger {
	globalMu.Lock()
	defer globalMu.Unlock()
	prev := globalLogger
	if next == nil {
		next = observability.NewNoOpLogger()
	}
	globalLogger = next
	return prev
}

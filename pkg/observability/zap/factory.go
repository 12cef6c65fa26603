package zap

import (
	"strings"

	"github.com/theory-cloud/idtheory/pkg/observability"
)

// Factory builds loggers that share one set of options, typically the
// output writer of a command.
type Factory struct {
	options []Option
}

var _ observability.LoggerFactory = (*Factory)(nil)

func NewZapLoggerFactory(options ...Option) *Factory {
	return &Factory{options: append([]Option(nil), options...)}
}

// CreateConsoleLogger builds a logger from config, using the console encoder
// unless config names another format.
func (f *Factory) CreateConsoleLogger(config observability.LoggerConfig) (observability.StructuredLogger, error) {
	if strings.TrimSpace(config.Format) == "" {
		config.Format = "console"
	}
	return NewZapLogger(config, f.options...)
}

func (f *Factory) CreateTestLogger() observability.StructuredLogger {
	return observability.NewTestLogger()
}

func (f *Factory) CreateNoOpLogger() observability.StructuredLogger {
	return observability.NewNoOpLogger()
}

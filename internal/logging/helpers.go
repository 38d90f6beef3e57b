package logging

import (
	"maps"

	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

// WithFields attaches fields when logger implements FieldsLogger and returns
// logger unchanged otherwise. The map is copied before it is handed over.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}

	fieldsLogger, ok := logger.(interfaces.FieldsLogger)
	if !ok {
		return logger
	}
	return fieldsLogger.WithFields(maps.Clone(fields))
}

// Or returns logger, or a no-op logger when logger is nil.
func Or(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return NoOp()
	}
	return logger
}

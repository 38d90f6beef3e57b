package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/internal/syncerr"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

// TelemetryStatus is the outcome category of a command run.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo is handed to telemetry callbacks once a command finishes.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// Telemetry is invoked after every command run, successful or not.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry logs the outcome with its duration. Failures also carry the
// sync error text code and whether the run was aborted (fatal) or only
// degraded, so a failed publish can be told apart from a slow one in logs.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	logger = logging.Or(logger)
	return func(ctx context.Context, _ T, info TelemetryInfo) {
		entry := logging.WithFields(logger, info.Fields)
		args := []any{"duration_ms", info.Duration.Milliseconds()}
		if info.Status == TelemetryStatusSuccess {
			entry.Info("command.execute.success", args...)
			return
		}

		args = append(args, "error", info.Error, "fatal", syncerr.IsFatal(info.Error))
		if code := syncerr.TextCode(info.Error); code != "" {
			args = append(args, "text_code", code)
		}
		if info.Status == TelemetryStatusContextError {
			entry.Error("command.execute.context_error", args...)
			return
		}
		entry.Error("command.execute.failed", args...)
	}
}

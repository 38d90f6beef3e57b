package commands

import (
	"context"
	"time"

	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

// DefaultCommandTimeout bounds a command that makes no remote calls, such as
// an index rebuild.
const DefaultCommandTimeout = 5 * time.Minute

// publishRequestBudget is how many WordPress round trips a publish run may
// spend at the full per-request timeout: a lookup and an upload per image
// plus the post itself.
const publishRequestBudget = 24

// PublishTimeout derives the command budget for a publish run from the
// per-request HTTP timeout. It never drops below DefaultCommandTimeout.
func PublishTimeout(requestTimeout time.Duration) time.Duration {
	if requestTimeout <= 0 {
		return DefaultCommandTimeout
	}
	return max(requestTimeout*publishRequestBudget, DefaultCommandTimeout)
}

// EnsureContext returns ctx, or context.Background when ctx is nil.
func EnsureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// WithCommandTimeout bounds ctx by timeout. A caller deadline that is already
// tighter wins; zero or negative leaves ctx unbounded.
func WithCommandTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// EnsureLogger returns logger, or a no-op logger when nil.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	return logging.Or(logger)
}

package wpsynccmd

import (
	"errors"

	"github.com/goliatone/go-wpsync/internal/commands"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the handlers built by RegisterCommands. A nil field means
// the matching dependency was not supplied.
type HandlerSet struct {
	Publish *PublishArticleHandler
	Rebuild *RebuildIndexHandler
}

// Dependencies carries the services and reporters the handlers wrap.
type Dependencies struct {
	Publisher     ArticlePublisher
	Rebuilder     IndexRebuilder
	PublishReport PublishReporter
	RebuildReport RebuildReporter
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	publishHandlerOpts []commands.HandlerOption[PublishArticleCommand]
	rebuildHandlerOpts []commands.HandlerOption[RebuildIndexCommand]
}

// WithPublishHandlerOptions forwards options to the PublishArticleHandler constructor.
func WithPublishHandlerOptions(opts ...commands.HandlerOption[PublishArticleCommand]) Option {
	return func(cfg *options) {
		cfg.publishHandlerOpts = append(cfg.publishHandlerOpts, opts...)
	}
}

// WithRebuildHandlerOptions forwards options to the RebuildIndexHandler constructor.
func WithRebuildHandlerOptions(opts ...commands.HandlerOption[RebuildIndexCommand]) Option {
	return func(cfg *options) {
		cfg.rebuildHandlerOpts = append(cfg.rebuildHandlerOpts, opts...)
	}
}

// RegisterCommands builds the handlers for the supplied dependencies and
// registers them with reg when it is non-nil.
func RegisterCommands(reg CommandRegistry, deps Dependencies, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if deps.Publisher == nil && deps.Rebuilder == nil {
		return nil, errors.New("wpsync command registration: no services supplied")
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "wpsync")
	set := &HandlerSet{}
	var handlers []any
	if deps.Publisher != nil {
		set.Publish = NewPublishArticleHandler(deps.Publisher, logger, deps.PublishReport, cfg.publishHandlerOpts...)
		handlers = append(handlers, set.Publish)
	}
	if deps.Rebuilder != nil {
		set.Rebuild = NewRebuildIndexHandler(deps.Rebuilder, logger, deps.RebuildReport, cfg.rebuildHandlerOpts...)
		handlers = append(handlers, set.Rebuild)
	}

	if reg != nil {
		for _, handler := range handlers {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

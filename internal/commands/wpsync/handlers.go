package wpsynccmd

import (
	"context"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-wpsync/internal/commands"
	"github.com/goliatone/go-wpsync/internal/index"
	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/internal/publish"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

const (
	publishOperation = "wpsync.publish_article"
	rebuildOperation = "wpsync.rebuild_index"
)

var (
	_ command.Commander[PublishArticleCommand] = (*PublishArticleHandler)(nil)
	_ command.Commander[RebuildIndexCommand]   = (*RebuildIndexHandler)(nil)
)

// ArticlePublisher is the orchestrator surface the publish handler drives.
type ArticlePublisher interface {
	Publish(ctx context.Context, slug string) (*publish.Result, error)
}

// IndexRebuilder is the index builder surface the rebuild handler drives.
type IndexRebuilder interface {
	Rebuild(ctx context.Context, output string, fields []string) (*index.RebuildResult, error)
}

// PublishReporter receives the outcome of a successful publish.
type PublishReporter func(*publish.Result)

// RebuildReporter receives the outcome of a successful rebuild.
type RebuildReporter func(*index.RebuildResult)

// PublishArticleHandler runs the publish pipeline through the shared command handler.
type PublishArticleHandler struct {
	inner *commands.Handler[PublishArticleCommand]
}

// NewPublishArticleHandler binds a handler to publisher. report may be nil.
func NewPublishArticleHandler(publisher ArticlePublisher, logger interfaces.Logger, report PublishReporter, opts ...commands.HandlerOption[PublishArticleCommand]) *PublishArticleHandler {
	baseLogger := logging.Or(logger)

	exec := func(ctx context.Context, msg PublishArticleCommand) error {
		result, err := publisher.Publish(ctx, msg.Slug)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"post_id":         result.PostID,
			"created":         result.Created,
			"images_resolved": result.ImagesResolved,
			"images_uploaded": result.ImagesUploaded,
			"images_failed":   result.ImagesFailed,
		}).Info("wpsync.command.publish_article.completed")
		if report != nil {
			report(result)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[PublishArticleCommand]{
		commands.WithLogger[PublishArticleCommand](baseLogger),
		commands.WithOperation[PublishArticleCommand](publishOperation),
		commands.WithMessageFields(func(msg PublishArticleCommand) map[string]any {
			return map[string]any{"slug": msg.Slug}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[PublishArticleCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &PublishArticleHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[PublishArticleCommand].
func (h *PublishArticleHandler) Execute(ctx context.Context, msg PublishArticleCommand) error {
	return h.inner.Execute(ctx, msg)
}

// RebuildIndexHandler runs an index rebuild through the shared command handler.
type RebuildIndexHandler struct {
	inner *commands.Handler[RebuildIndexCommand]
}

// NewRebuildIndexHandler binds a handler to rebuilder. report may be nil.
func NewRebuildIndexHandler(rebuilder IndexRebuilder, logger interfaces.Logger, report RebuildReporter, opts ...commands.HandlerOption[RebuildIndexCommand]) *RebuildIndexHandler {
	baseLogger := logging.Or(logger)

	exec := func(ctx context.Context, msg RebuildIndexCommand) error {
		result, err := rebuilder.Rebuild(ctx, msg.Output, msg.Fields)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"output":   result.Output,
			"articles": result.Articles,
			"skipped":  result.Skipped,
		}).Info("wpsync.command.rebuild_index.completed")
		if report != nil {
			report(result)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[RebuildIndexCommand]{
		commands.WithLogger[RebuildIndexCommand](baseLogger),
		commands.WithOperation[RebuildIndexCommand](rebuildOperation),
		commands.WithMessageFields(func(msg RebuildIndexCommand) map[string]any {
			fields := map[string]any{"output": msg.Output}
			if len(msg.Fields) > 0 {
				fields["fields"] = msg.Fields
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[RebuildIndexCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &RebuildIndexHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[RebuildIndexCommand].
func (h *RebuildIndexHandler) Execute(ctx context.Context, msg RebuildIndexCommand) error {
	return h.inner.Execute(ctx, msg)
}

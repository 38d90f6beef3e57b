package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	wpsynccmd "github.com/goliatone/go-wpsync/internal/commands/wpsync"
	"github.com/goliatone/go-wpsync/internal/index"
	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/internal/logging/console"
	"github.com/goliatone/go-wpsync/internal/logging/gologger"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/internal/publish"
	"github.com/goliatone/go-wpsync/internal/runtimeconfig"
	"github.com/goliatone/go-wpsync/internal/wordpress"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

// Options captures configuration for the wpsync CLI bootstraps.
type Options struct {
	Config runtimeconfig.Config
	// LogWriter receives console log output. Defaults to stderr.
	LogWriter io.Writer
	// HTTPClient overrides the transport built from Config.Publish.HTTPTimeout.
	HTTPClient *http.Client
}

// PublishModule is everything the publish CLI needs.
type PublishModule struct {
	Publisher wpsynccmd.ArticlePublisher
	Provider  interfaces.LoggerProvider
	Logger    interfaces.Logger
}

// IndexModule is everything the rebuild-index CLI needs. Close releases the
// database mirror when one is configured.
type IndexModule struct {
	Builder  wpsynccmd.IndexRebuilder
	Provider interfaces.LoggerProvider
	Logger   interfaces.Logger
	Close    func() error
}

// BuildPublishModule loads credentials and wires store, client, resolver,
// publisher and renderer into a Publisher.
func BuildPublishModule(opts Options) (*PublishModule, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := NewLoggerProvider(cfg.Logging, opts.LogWriter)
	if err != nil {
		return nil, err
	}

	creds, err := runtimeconfig.LoadCredentials(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Publish.HTTPTimeout}
	}
	remoteLogger := logging.RemoteLogger(provider)
	client, err := wordpress.NewClient(creds,
		wordpress.WithHTTPClient(httpClient),
		wordpress.WithClientLogger(remoteLogger),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise wordpress client: %w", err)
	}

	store := markdown.NewStore(cfg.ContentDir, markdown.WithStoreLogger(logging.StoreLogger(provider)))
	logger := logging.PublishLogger(provider)
	publisher, err := publish.NewPublisher(publish.Config{
		Store:    store,
		Resolver: wordpress.NewMediaResolver(client, remoteLogger),
		Media:    wordpress.NewMediaPublisher(client, remoteLogger),
		Posts:    wordpress.NewPostSynchronizer(client, remoteLogger),
		Renderer: markdown.NewGoldmarkParser(ParseOptions(cfg.Markdown.Parser)),
		Logger:   logger,
	}, publish.WithArticleLock(cfg.Publish.LockArticles))
	if err != nil {
		return nil, fmt.Errorf("initialise publisher: %w", err)
	}

	return &PublishModule{
		Publisher: publisher,
		Provider:  provider,
		Logger:    logger,
	}, nil
}

// BuildIndexModule wires the index builder and, when IndexStore.Driver is
// set, its database mirror.
func BuildIndexModule(opts Options) (*IndexModule, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := NewLoggerProvider(cfg.Logging, opts.LogWriter)
	if err != nil {
		return nil, err
	}
	logger := logging.IndexLogger(provider)

	builderOpts := []index.Option{index.WithLogger(logger)}
	closeFn := func() error { return nil }
	if driver := strings.TrimSpace(cfg.IndexStore.Driver); driver != "" {
		db, err := index.OpenDB(driver, cfg.IndexStore.DSN)
		if err != nil {
			return nil, fmt.Errorf("open index store: %w", err)
		}
		mirror := index.NewBunStore(db)
		if err := mirror.EnsureSchema(context.Background()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare index store: %w", err)
		}
		builderOpts = append(builderOpts, index.WithMirror(mirror))
		closeFn = db.Close
	}

	store := markdown.NewStore(cfg.ContentDir, markdown.WithStoreLogger(logging.StoreLogger(provider)))
	return &IndexModule{
		Builder:  index.NewBuilder(store, builderOpts...),
		Provider: provider,
		Logger:   logger,
		Close:    closeFn,
	}, nil
}

// NewLoggerProvider builds the provider named by cfg.Provider.
func NewLoggerProvider(cfg runtimeconfig.LoggingConfig, writer io.Writer) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{Level: cfg.Level, Format: cfg.Format})
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "", "console":
		level, ok := console.ParseLevel(cfg.Level)
		if !ok {
			return nil, fmt.Errorf("logging: unsupported level %q", cfg.Level)
		}
		return console.NewProvider(console.Options{Writer: writer, MinLevel: level}), nil
	default:
		return nil, fmt.Errorf("logging: unsupported provider %q", cfg.Provider)
	}
}

// ParseOptions converts the renderer configuration.
func ParseOptions(cfg runtimeconfig.MarkdownParserConfig) interfaces.ParseOptions {
	return interfaces.ParseOptions{
		Extensions: SplitList(strings.Join(cfg.Extensions, ",")),
		HardWraps:  cfg.HardWraps,
		SafeMode:   cfg.SafeMode,
	}
}

// SplitList parses a comma separated list into a trimmed slice.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

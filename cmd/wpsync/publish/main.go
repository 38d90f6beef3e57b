package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/goliatone/go-wpsync/cmd/wpsync/internal/bootstrap"
	"github.com/goliatone/go-wpsync/internal/commands"
	wpsynccmd "github.com/goliatone/go-wpsync/internal/commands/wpsync"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/internal/publish"
	"github.com/goliatone/go-wpsync/internal/runtimeconfig"
)

var moduleBuilder = bootstrap.BuildPublishModule

func main() {
	if err := runPublish(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("wpsync publish: %v", err)
	}
}

func runPublish(args []string, stdout io.Writer) error {
	defaults := runtimeconfig.DefaultConfig()

	fs := flag.NewFlagSet("wpsync-publish", flag.ContinueOnError)
	contentDir := fs.String("content-dir", defaults.ContentDir, "Path to the article content root")
	credentials := fs.String("config", defaults.CredentialsPath, "Path to the WordPress credentials JSON file")
	lock := fs.Bool("lock", defaults.Publish.LockArticles, "Hold an exclusive lock on the article while publishing")
	timeout := fs.Duration("timeout", defaults.Publish.HTTPTimeout, "Timeout applied to each WordPress request")
	extensions := fs.String("extensions", "", "Comma separated goldmark extensions (defaults to table,strikethrough,footnote)")
	hardWraps := fs.Bool("hard-wraps", false, "Render soft line breaks as <br>")
	logProvider := fs.String("log-provider", defaults.Logging.Provider, "Logging provider: console or gologger")
	logLevel := fs.String("log-level", defaults.Logging.Level, "Minimum log level")
	logFormat := fs.String("log-format", defaults.Logging.Format, "go-logger output format: console, json or pretty")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: wpsync-publish [flags] <slug>")
	}
	slug := markdown.CleanSlug(fs.Arg(0))

	cfg := defaults
	cfg.ContentDir = *contentDir
	cfg.CredentialsPath = *credentials
	cfg.Publish.LockArticles = *lock
	cfg.Publish.HTTPTimeout = *timeout
	cfg.Markdown.Parser.Extensions = bootstrap.SplitList(*extensions)
	cfg.Markdown.Parser.HardWraps = *hardWraps
	cfg.Logging.Provider = *logProvider
	cfg.Logging.Level = *logLevel
	cfg.Logging.Format = *logFormat

	module, err := moduleBuilder(bootstrap.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}

	logger := module.Logger
	if module.Provider != nil {
		logger = commands.CommandLogger(module.Provider, "publish")
	}
	handler := wpsynccmd.NewPublishArticleHandler(module.Publisher, logger, func(result *publish.Result) {
		printResult(stdout, result)
	}, commands.WithTimeout[wpsynccmd.PublishArticleCommand](commands.PublishTimeout(cfg.Publish.HTTPTimeout)))
	if err := handler.Execute(context.Background(), wpsynccmd.PublishArticleCommand{Slug: slug}); err != nil {
		return err
	}
	return nil
}

func printResult(w io.Writer, result *publish.Result) {
	action := "Updated"
	if result.Created {
		action = "Created"
	}
	name := result.Title
	if name == "" {
		name = result.Slug
	}
	fmt.Fprintf(w, "%s: %s\n", action, name)
	fmt.Fprintf(w, "  Post ID: %d\n", result.PostID)
	fmt.Fprintf(w, "  URL: %s\n", result.URL)
}

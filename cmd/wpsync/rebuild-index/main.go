package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/goliatone/go-wpsync/cmd/wpsync/internal/bootstrap"
	"github.com/goliatone/go-wpsync/internal/commands"
	wpsynccmd "github.com/goliatone/go-wpsync/internal/commands/wpsync"
	"github.com/goliatone/go-wpsync/internal/index"
	"github.com/goliatone/go-wpsync/internal/runtimeconfig"
)

var moduleBuilder = bootstrap.BuildIndexModule

func main() {
	if err := runRebuild(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("wpsync rebuild-index: %v", err)
	}
}

func runRebuild(args []string, stdout io.Writer) (err error) {
	defaults := runtimeconfig.DefaultConfig()

	fs := flag.NewFlagSet("wpsync-rebuild-index", flag.ContinueOnError)
	contentDir := fs.String("content-dir", defaults.ContentDir, "Path to the article content root")
	output := fs.String("output", defaults.IndexOutput, "Path of the JSON index to write")
	fields := fs.String("fields", "", "Comma separated frontmatter keys to keep (default: all)")
	dbDriver := fs.String("db-driver", "", "Optional database mirror driver: sqlite3 or postgres")
	dbDSN := fs.String("db-dsn", "", "DSN for the database mirror")
	logProvider := fs.String("log-provider", defaults.Logging.Provider, "Logging provider: console or gologger")
	logLevel := fs.String("log-level", defaults.Logging.Level, "Minimum log level")
	logFormat := fs.String("log-format", defaults.Logging.Format, "go-logger output format: console, json or pretty")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaults
	cfg.ContentDir = *contentDir
	cfg.IndexOutput = *output
	cfg.IndexStore.Driver = *dbDriver
	cfg.IndexStore.DSN = *dbDSN
	cfg.Logging.Provider = *logProvider
	cfg.Logging.Level = *logLevel
	cfg.Logging.Format = *logFormat

	module, err := moduleBuilder(bootstrap.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	if module.Close != nil {
		defer func() {
			if cerr := module.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close index store: %w", cerr)
			}
		}()
	}

	logger := module.Logger
	if module.Provider != nil {
		logger = commands.CommandLogger(module.Provider, "rebuild-index")
	}
	handler := wpsynccmd.NewRebuildIndexHandler(module.Builder, logger, func(result *index.RebuildResult) {
		fmt.Fprintf(stdout, "Rebuilt %s: %d articles\n", result.Output, result.Articles)
	})
	return handler.Execute(context.Background(), wpsynccmd.RebuildIndexCommand{
		Output: cfg.IndexOutput,
		Fields: index.ParseFields(*fields),
	})
}

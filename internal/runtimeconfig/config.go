package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrContentDirRequired = errors.New("wpsync config: content directory is required")
var ErrCredentialsPathRequired = errors.New("wpsync config: credentials path is required")
var ErrIndexOutputRequired = errors.New("wpsync config: index output path is required")
var ErrLoggingProviderRequired = errors.New("wpsync config: logging provider is required")
var ErrLoggingProviderUnknown = errors.New("wpsync config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("wpsync config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("wpsync config: logging format is invalid")
var ErrHTTPTimeoutInvalid = errors.New("wpsync config: http timeout must be zero or positive")

// ErrIndexStoreDriverUnknown is returned when the index mirror names a driver
// other than sqlite3 or postgres.
var ErrIndexStoreDriverUnknown = errors.New("wpsync config: index store driver is invalid")

// ErrIndexStoreDSNRequired ensures a mirror driver always comes with a DSN.
var ErrIndexStoreDSNRequired = errors.New("wpsync config: index store dsn is required when a driver is set")

// Config aggregates the settings shared by the publish and rebuild-index
// commands.
type Config struct {
	ContentDir      string
	CredentialsPath string
	IndexOutput     string
	Markdown        MarkdownConfig
	Logging         LoggingConfig
	Publish         PublishConfig
	IndexStore      IndexStoreConfig
}

// MarkdownConfig captures renderer behaviour.
type MarkdownConfig struct {
	Parser MarkdownParserConfig
}

// MarkdownParserConfig mirrors interfaces.ParseOptions for runtime configuration.
type MarkdownParserConfig struct {
	Extensions []string
	HardWraps  bool
	SafeMode   bool
}

// LoggingConfig selects the logging provider.
type LoggingConfig struct {
	Provider string
	Level    string
	Format   string
}

// PublishConfig controls the publish pipeline.
type PublishConfig struct {
	// LockArticles takes an exclusive lock file next to the article while it
	// is being published.
	LockArticles bool
	HTTPTimeout  time.Duration
}

// IndexStoreConfig enables the optional database mirror of the index. An
// empty Driver disables it.
type IndexStoreConfig struct {
	Driver string
	DSN    string
}

// DefaultConfig returns the layout used by the CLIs when no flags are given.
func DefaultConfig() Config {
	return Config{
		ContentDir:      "content",
		CredentialsPath: "config/wordpress.json",
		IndexOutput:     "_index.json",
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
		Publish: PublishConfig{
			HTTPTimeout: 60 * time.Second,
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.ContentDir) == "" {
		return ErrContentDirRequired
	}
	if strings.TrimSpace(cfg.CredentialsPath) == "" {
		return ErrCredentialsPathRequired
	}
	if strings.TrimSpace(cfg.IndexOutput) == "" {
		return ErrIndexOutputRequired
	}
	if cfg.Publish.HTTPTimeout < 0 {
		return ErrHTTPTimeoutInvalid
	}

	provider := normalize(cfg.Logging.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}

	if driver := normalize(cfg.IndexStore.Driver); driver != "" {
		if driver != "sqlite3" && driver != "postgres" {
			return fmt.Errorf("%w: %s", ErrIndexStoreDriverUnknown, driver)
		}
		if strings.TrimSpace(cfg.IndexStore.DSN) == "" {
			return ErrIndexStoreDSNRequired
		}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch normalize(level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch normalize(format) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}

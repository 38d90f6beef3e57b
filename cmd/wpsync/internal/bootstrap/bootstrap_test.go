package bootstrap

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-wpsync/internal/runtimeconfig"
)

func TestSplitList(t *testing.T) {
	if got := SplitList(" "); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := SplitList("table, ,footnote"); !reflect.DeepEqual(got, []string{"table", "footnote"}) {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestNewLoggerProviderConsole(t *testing.T) {
	var buf bytes.Buffer
	provider, err := NewLoggerProvider(runtimeconfig.LoggingConfig{Provider: "console", Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("NewLoggerProvider: %v", err)
	}
	logger := provider.GetLogger("wpsync.test")
	logger.Info("hidden")
	logger.Warn("shown")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "WARN shown") {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestNewLoggerProviderRejectsUnknown(t *testing.T) {
	if _, err := NewLoggerProvider(runtimeconfig.LoggingConfig{Provider: "syslog"}, nil); err == nil {
		t.Fatal("expected unknown provider error")
	}
}

func TestBuildPublishModuleValidatesConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.ContentDir = ""
	if _, err := BuildPublishModule(Options{Config: cfg}); err == nil {
		t.Fatal("expected invalid config to fail")
	}
}

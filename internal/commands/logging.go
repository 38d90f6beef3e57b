package commands

import (
	"strings"

	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

const commandModuleRoot = "wpsync.commands"

// CommandLogger returns the logger a CLI hands to its command handler. The
// entry point ("publish", "rebuild-index") becomes both the logger module
// suffix and the entrypoint field, so output from both tools can share a sink.
func CommandLogger(provider interfaces.LoggerProvider, entrypoint string) interfaces.Logger {
	name := strings.TrimSpace(entrypoint)
	if name == "" {
		name = "wpsync"
	}
	return logging.WithFields(logging.ModuleLogger(provider, commandModuleRoot+"."+name), map[string]any{
		"component":  "command",
		"entrypoint": name,
	})
}

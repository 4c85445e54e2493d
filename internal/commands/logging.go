package commands

import (
	"strings"

	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
)

const commandModuleRoot = "kuebico.commands"

// CommandLogger returns the logger for the command handlers of module, e.g.
// "export" logs as "kuebico.commands.export".
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}

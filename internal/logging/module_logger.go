package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-kuebico/pkg/interfaces"
)

const (
	rootModule    = "kuebico"
	storageModule = "kuebico.storage"
	cliModule     = "kuebico.cli"
)

const (
	fieldPageName = "page"
	fieldBackend  = "backend"
)

// ModuleLogger returns a logger scoped to module, falling back to a no-op
// logger when provider is nil or returns nothing. The module name is attached
// as a structured field.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// StorageLogger returns the logger namespace used by storage backends.
func StorageLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, storageModule)
}

// CLILogger returns the logger namespace used by the kuebico command.
func CLILogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, cliModule)
}

// WithPageContext adds the page name and backend to logger. Empty values are
// skipped.
func WithPageContext(logger interfaces.Logger, name, backend string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		fields[fieldPageName] = trimmed
	}
	if trimmed := strings.TrimSpace(backend); trimmed != "" {
		fields[fieldBackend] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}

// Package exportcmd exposes the export pipeline as a go-command handler.
package exportcmd

import (
	"context"
	"errors"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-kuebico/internal/commands"
	"github.com/goliatone/go-kuebico/internal/export"
	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

// ErrStorageRequired is returned when the handler has no storage to export from.
var ErrStorageRequired = errors.New("exportcmd: storage is required")

var _ command.Commander[ExportCommand] = (*ExportHandler)(nil)

// ExportHandler runs an export over a storage backend.
type ExportHandler struct {
	inner *commands.Handler[ExportCommand]
}

// NewExportHandler constructs a handler exporting the pages of pages. A nil
// renderer selects the default HTML renderer.
func NewExportHandler(pages storage.Iterable, renderer export.Renderer, logger interfaces.Logger, opts ...commands.HandlerOption[ExportCommand]) *ExportHandler {
	baseLogger := logging.Ensure(logger)

	exec := func(ctx context.Context, msg ExportCommand) error {
		if pages == nil {
			return ErrStorageRequired
		}

		exportOpts := []export.Option{export.WithLogger(baseLogger)}
		if renderer != nil {
			exportOpts = append(exportOpts, export.WithRenderer(renderer))
		}
		exporter, err := export.New(pages.Iter(), msg.settings(), exportOpts...)
		if err != nil {
			return err
		}

		result, err := exporter.Export(ctx)
		if msg.ResultCallback != nil {
			msg.ResultCallback(result)
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[ExportCommand]{
		commands.WithLogger[ExportCommand](baseLogger),
		commands.WithOperation[ExportCommand]("export.run"),
		commands.WithMessageFields(func(msg ExportCommand) map[string]any {
			fields := map[string]any{
				"export_dir": msg.ExportDir,
			}
			if msg.StaticDir != "" {
				fields["static_dir"] = msg.StaticDir
			}
			if msg.FailFast {
				fields["fail_fast"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ExportCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ExportHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ExportCommand].
func (h *ExportHandler) Execute(ctx context.Context, msg ExportCommand) error {
	return h.inner.Execute(ctx, msg)
}

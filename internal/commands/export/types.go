package exportcmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-kuebico/internal/export"
	"github.com/goliatone/go-kuebico/internal/fsutil"
)

const runExportMessageType = "kuebico.export.run"

// ResultCallback receives the export result. It is optional and invoked
// synchronously from the handler, also when the export failed.
type ResultCallback func(*export.Result)

// ExportCommand renders every stored page into ExportDir.
type ExportCommand struct {
	ExportDir      string         `json:"export_dir"`
	StaticDir      string         `json:"static_dir,omitempty"`
	FailFast       bool           `json:"fail_fast,omitempty"`
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (ExportCommand) Type() string { return runExportMessageType }

// Validate ensures the export directory is set and is neither the static
// directory nor nested inside it.
func (m ExportCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ExportDir,
			validation.Required.Error("export_dir is required"),
			validation.By(func(any) error {
				if strings.TrimSpace(m.StaticDir) != "" && fsutil.Within(m.StaticDir, m.ExportDir) {
					return validation.NewError("kuebico.export.dir_conflict", "export_dir must not be static_dir or lie inside it")
				}
				return nil
			}),
		),
	)
}

func (m ExportCommand) settings() export.Settings {
	return export.Settings{
		ExportDir: strings.TrimSpace(m.ExportDir),
		StaticDir: strings.TrimSpace(m.StaticDir),
		FailFast:  m.FailFast,
	}
}

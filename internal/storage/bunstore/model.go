package bunstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-kuebico/pkg/storage"
)

type pageModel struct {
	bun.BaseModel `bun:"table:pages"`

	ID        uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	Name      string         `bun:"name,notnull,unique" json:"name"`
	Source    string         `bun:"source,notnull" json:"source"`
	Title     string         `bun:"title" json:"title,omitempty"`
	Template  string         `bun:"template,notnull" json:"template"`
	Custom    map[string]any `bun:"custom,type:jsonb" json:"custom,omitempty"`
	UpdatedAt time.Time      `bun:"updated_at,notnull" json:"updated_at"`
}

func modelFromPage(name, source string, meta storage.Metadata, now time.Time) *pageModel {
	return &pageModel{
		ID:        uuid.New(),
		Name:      name,
		Source:    source,
		Title:     meta.Title,
		Template:  meta.Template,
		Custom:    meta.Custom,
		UpdatedAt: now,
	}
}

func (m *pageModel) page() *storage.Page {
	meta := storage.Metadata{
		Title:    m.Title,
		Template: m.Template,
		Custom:   m.Custom,
	}
	if meta.Template == "" {
		meta.Template = storage.DefaultTemplate
	}
	if meta.Custom == nil {
		meta.Custom = map[string]any{}
	}
	return &storage.Page{
		Name:     m.Name,
		Source:   m.Source,
		Metadata: meta,
	}
}

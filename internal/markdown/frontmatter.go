package markdown

import (
	"fmt"
	"maps"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-kuebico/pkg/storage"
)

// ParseFrontMatter splits source into its front matter and Markdown body.
// Sources without front matter yield default metadata and the full source as
// body.
func ParseFrontMatter(source []byte) (storage.Metadata, []byte, error) {
	var meta frontMatterEnvelope

	body, err := frontmatter.Parse(strings.NewReader(string(source)), &meta)
	if err != nil {
		return storage.Metadata{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	return envelopeToMetadata(meta), body, nil
}

// ExtractMetadata satisfies storage.MetadataExtractor.
func ExtractMetadata(source string) (storage.Metadata, error) {
	meta, _, err := ParseFrontMatter([]byte(source))
	return meta, err
}

var _ storage.MetadataExtractor = ExtractMetadata

// Body returns the Markdown body of source with any front matter removed.
func Body(source string) ([]byte, error) {
	_, body, err := ParseFrontMatter([]byte(source))
	return body, err
}

type frontMatterEnvelope struct {
	Title    string         `yaml:"title"`
	Template string         `yaml:"template"`
	Custom   map[string]any `yaml:",inline"`
}

func envelopeToMetadata(env frontMatterEnvelope) storage.Metadata {
	meta := storage.Metadata{
		Title:    strings.TrimSpace(env.Title),
		Template: strings.TrimSpace(env.Template),
		Custom:   map[string]any{},
	}
	if meta.Template == "" {
		meta.Template = storage.DefaultTemplate
	}
	maps.Copy(meta.Custom, env.Custom)
	return meta
}

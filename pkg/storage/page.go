package storage

// DefaultTemplate is the template assigned to pages whose metadata does not
// name one.
const DefaultTemplate = "page"

// Page is a named unit of wiki content. Name may contain "/" separators when
// the page is grouped under another page (e.g. "faq/long-answer").
type Page struct {
	// Name identifies the page within its backend and round-trips through Read.
	Name string
	// Source is the full markdown source representing the latest state of the page.
	Source string
	// Metadata carries the values used when rendering the page, such as the template.
	Metadata Metadata
}

// Metadata is the data passed into the page template along with the content.
// Custom keeps frontmatter fields that have no dedicated field.
type Metadata struct {
	Title    string         `yaml:"title" json:"title,omitempty"`
	Template string         `yaml:"template" json:"template"`
	Custom   map[string]any `yaml:",inline" json:"custom,omitempty"`
}

// DefaultMetadata returns the metadata used when a backend does not extract
// any from the page source.
func DefaultMetadata() Metadata {
	return Metadata{
		Template: DefaultTemplate,
		Custom:   map[string]any{},
	}
}

// HasTitle reports whether a title was provided.
func (m Metadata) HasTitle() bool {
	return m.Title != ""
}

// MetadataExtractor derives page metadata from the raw page source. Backends
// fall back to DefaultMetadata when no extractor is configured.
type MetadataExtractor func(source string) (Metadata, error)

// ExtractMetadata runs extractor against source, normalising the result so an
// empty template resolves to DefaultTemplate.
func ExtractMetadata(extractor MetadataExtractor, source string) (Metadata, error) {
	if extractor == nil {
		return DefaultMetadata(), nil
	}
	meta, err := extractor(source)
	if err != nil {
		return Metadata{}, err
	}
	if meta.Template == "" {
		meta.Template = DefaultTemplate
	}
	if meta.Custom == nil {
		meta.Custom = map[string]any{}
	}
	return meta, nil
}

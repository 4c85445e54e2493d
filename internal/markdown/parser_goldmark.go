package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/goliatone/go-kuebico/pkg/interfaces"
)

// GoldmarkParser implements interfaces.MarkdownParser using goldmark. The
// engine for the default options is built once; goldmark engines are safe
// for concurrent use.
type GoldmarkParser struct {
	defaults interfaces.ParseOptions
	engine   goldmark.Markdown
}

var _ interfaces.MarkdownParser = (*GoldmarkParser)(nil)

// NewGoldmarkParser returns a parser rendering with defaults. An empty
// extension list enables GFM, linkify and task lists. Raw HTML in page
// bodies passes through unless SafeMode or Sanitize is set.
func NewGoldmarkParser(defaults interfaces.ParseOptions) *GoldmarkParser {
	return &GoldmarkParser{
		defaults: defaults,
		engine:   newGoldmarkEngine(defaults),
	}
}

// Parse renders markdown with the parser defaults.
func (p *GoldmarkParser) Parse(markdown []byte) ([]byte, error) {
	return convert(p.engine, markdown)
}

// ParseWithOptions renders markdown with opts instead of the defaults.
func (p *GoldmarkParser) ParseWithOptions(markdown []byte, opts interfaces.ParseOptions) ([]byte, error) {
	return convert(newGoldmarkEngine(opts), markdown)
}

func convert(engine goldmark.Markdown, markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := engine.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

// newGoldmarkEngine maps opts onto goldmark options. Headings always get ids
// so exported pages can be linked by anchor.
func newGoldmarkEngine(opts interfaces.ParseOptions) goldmark.Markdown {
	var rendererOptions []renderer.Option
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode && !opts.Sanitize {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	return goldmark.New(
		goldmark.WithExtensions(collectExtensions(opts.Extensions)...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
	)
}

var defaultExtensions = []string{"gfm", "linkify", "tasklist"}

// extensionRegistry maps configuration names to extenders. Aliases share an
// extender so "table" and "tables" enable it once.
var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

// collectExtensions resolves names, ignoring unknown ones and duplicates.
func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		names = defaultExtensions
	}

	var extenders []goldmark.Extender
	seen := make(map[goldmark.Extender]bool, len(names))
	for _, name := range names {
		ext, ok := extensionRegistry[strings.ToLower(strings.TrimSpace(name))]
		if !ok || seen[ext] {
			continue
		}
		seen[ext] = true
		extenders = append(extenders, ext)
	}
	return extenders
}

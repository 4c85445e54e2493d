// Package render turns pages into HTML documents using html/template.
package render

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goliatone/go-kuebico/internal/markdown"
	"github.com/goliatone/go-kuebico/pkg/interfaces"
	"github.com/goliatone/go-kuebico/pkg/storage"
)

// ErrTemplateNotFound is returned when a page names a template that is not loaded.
var ErrTemplateNotFound = errors.New("render: template not found")

const builtinPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<article>
{{.Content}}
</article>
</body>
</html>
`

// PageData is the value passed to page templates.
type PageData struct {
	Name     string
	Title    string
	Template string
	Content  template.HTML
	Source   string
	Metadata storage.Metadata
}

// Option customises an HTML renderer.
type Option func(*HTML)

// WithTemplatesDir loads every .html and .tmpl file under dir. A template is
// addressed by its file name with or without the extension, so
// "faq.html" serves pages whose template is "faq". Templates from the
// directory replace the built-in "page" template.
func WithTemplatesDir(dir string) Option {
	return func(r *HTML) {
		r.dir = dir
	}
}

// WithParser sets the Markdown parser used for page bodies.
func WithParser(parser interfaces.MarkdownParser) Option {
	return func(r *HTML) {
		if parser != nil {
			r.parser = parser
		}
	}
}

// HTML renders pages through html/template. Templates load on first use.
type HTML struct {
	dir    string
	parser interfaces.MarkdownParser

	once sync.Once
	tpl  *template.Template
	err  error
}

// New returns a renderer with the built-in "page" template and a goldmark
// parser using default options.
func New(opts ...Option) *HTML {
	r := &HTML{
		parser: markdown.NewGoldmarkParser(interfaces.ParseOptions{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes page to w using the template named by its metadata.
func (r *HTML) Render(ctx context.Context, page *storage.Page, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if page == nil {
		return errors.New("render: page is nil")
	}

	tpl, err := r.templates()
	if err != nil {
		return err
	}

	name := page.Metadata.Template
	if name == "" {
		name = storage.DefaultTemplate
	}
	target := lookup(tpl, name)
	if target == nil {
		return fmt.Errorf("%w: %q (page %s)", ErrTemplateNotFound, name, page.Name)
	}

	body, err := markdown.Body(page.Source)
	if err != nil {
		return fmt.Errorf("render %s: %w", page.Name, err)
	}
	content, err := r.parser.Parse(body)
	if err != nil {
		return fmt.Errorf("render %s: %w", page.Name, err)
	}

	data := PageData{
		Name:     page.Name,
		Title:    titleFor(page),
		Template: name,
		Content:  template.HTML(content),
		Source:   page.Source,
		Metadata: page.Metadata,
	}
	if err := target.Execute(w, data); err != nil {
		return fmt.Errorf("render %s: %w", page.Name, err)
	}
	return nil
}

func (r *HTML) templates() (*template.Template, error) {
	r.once.Do(func() {
		root := template.New(storage.DefaultTemplate).Funcs(template.FuncMap{
			"safeHTML": toHTML,
		})
		r.tpl, r.err = root.Parse(builtinPage)
		if r.err != nil || r.dir == "" {
			return
		}
		r.err = r.loadDir()
	})
	return r.tpl, r.err
}

func (r *HTML) loadDir() error {
	info, err := os.Stat(r.dir)
	if err != nil {
		return fmt.Errorf("render: inspect template directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("render: template path %q is not a directory", r.dir)
	}

	return filepath.WalkDir(r.dir, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".html" && ext != ".tmpl" {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.dir, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		if _, err := r.tpl.New(name).Parse(string(data)); err != nil {
			return fmt.Errorf("render: parse template %s: %w", rel, err)
		}
		return nil
	})
}

func lookup(tpl *template.Template, name string) *template.Template {
	if t := tpl.Lookup(name); t != nil {
		return t
	}
	return tpl.Lookup(strings.TrimSuffix(name, path.Ext(name)))
}

func titleFor(page *storage.Page) string {
	if page.Metadata.HasTitle() {
		return page.Metadata.Title
	}
	return path.Base(page.Name)
}

func toHTML(value any) template.HTML {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case template.HTML:
		return v
	case string:
		return template.HTML(v)
	default:
		return template.HTML(fmt.Sprint(v))
	}
}

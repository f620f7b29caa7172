// Package content discovers and renders pages and documents. Pages are
// html/template files below the pages directory sharing the layouts
// directory; documents are markdown files with YAML front matter. Rendered
// markup is scanned for island markers so only the islands a page uses get
// their hydration assets.
package content

import (
	"context"
	"html/template"

	"github.com/a-h/templ"

	"github.com/conneroisu/isle/internal/config"
	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/metrics"
	"github.com/conneroisu/isle/internal/registry"
)

// PageData is passed to page templates.
type PageData struct {
	Site  config.SiteConfig
	Name  string
	Path  string
	Posts []Document
}

// DocumentData is passed to the document template.
type DocumentData struct {
	Site    config.SiteConfig
	Path    string
	Doc     Document
	Content templ.Component
	Cover   template.HTML
}

// Pipeline ties document discovery, markdown compilation and page
// templates together.
type Pipeline struct {
	Site      config.SiteConfig
	URLs      URLs
	Store     *Store
	Templates *Templates
	Markdown  *Markdown

	logger  logging.Logger
	metrics metrics.Recorder
}

// NewPipeline wires a pipeline from configuration.
func NewPipeline(cfg *config.Config, islands *registry.Registry, logger logging.Logger, rec metrics.Recorder) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	urls := URLs{BasePath: cfg.Site.BasePath}
	return &Pipeline{
		Site:  cfg.Site,
		URLs:  urls,
		Store: NewStore(cfg.Paths.Posts, logger),
		Templates: &Templates{
			PagesDir:   cfg.Paths.Pages,
			LayoutsDir: cfg.Paths.Layouts,
			URLs:       urls,
			Funcs: Funcs(FuncsConfig{
				URLs:       urls,
				StyleCache: cfg.Paths.StyleModuleCache(),
				Islands:    islands,
			}),
		},
		Markdown: NewMarkdown(islands),
		logger:   logger.WithComponent("content"),
		metrics:  metrics.OrNoop(rec),
	}
}

// Documents loads every document, newest first.
func (p *Pipeline) Documents(ctx context.Context) ([]Document, error) {
	return p.Store.Load(ctx)
}

// Pages discovers the page templates.
func (p *Pipeline) Pages() (*Pages, error) {
	return p.Templates.Load()
}

// RenderPage binds page data to a page.
func (p *Pipeline) RenderPage(page *Page, docs []Document) templ.Component {
	return page.Component(PageData{
		Site:  p.Site,
		Name:  page.Name,
		Path:  page.Route,
		Posts: docs,
	})
}

// RenderDocument compiles doc and binds it to the document template.
func (p *Pipeline) RenderDocument(ctx context.Context, pages *Pages, doc Document) (templ.Component, error) {
	if pages.Document == nil {
		return nil, errors.ErrPageNotFound(DocumentTemplate)
	}
	body, err := p.Store.Body(doc)
	if err != nil {
		return nil, err
	}
	compiled, err := p.Markdown.Component(body)
	if err != nil {
		return nil, errors.WrapBuild(err, errors.ErrCodeDocumentParse, "failed to compile document", doc.Slug)
	}
	cover, err := Cover(doc, p.URLs)
	if err != nil {
		p.logger.Warn(ctx, err, "Rendering document without cover", "slug", doc.Slug)
	}
	return pages.Document.Component(DocumentData{
		Site:    p.Site,
		Path:    p.URLs.DocumentRoute(doc.Slug),
		Doc:     doc,
		Content: compiled,
		Cover:   cover,
	}), nil
}

// RenderHTML renders c and assembles the final document with a.
func (p *Pipeline) RenderHTML(ctx context.Context, a *Assembler, kind string, c templ.Component) (string, []string, error) {
	out, islands, err := a.Render(ctx, c)
	if err != nil {
		p.metrics.IncPageRender(kind, metrics.ResultFailed)
		return "", nil, errors.NewBuildError(errors.ErrCodePageRender, "failed to render "+kind, err)
	}
	p.metrics.IncPageRender(kind, metrics.ResultSuccess)
	return out, islands, nil
}

package content

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/isle/internal/config"
)

const baseLayout = `{{define "base"}}<html><head><title>{{.Site.Name}}</title></head><body>{{block "content" .}}{{end}}</body></html>{{end}}`

func newSite(t *testing.T, basePath string) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Site: config.SiteConfig{Name: "Field Notes", URL: "https://example.com", BasePath: basePath},
		Paths: config.PathsConfig{
			Root:    root,
			Posts:   filepath.Join(root, "src", "posts"),
			Pages:   filepath.Join(root, "src", "pages"),
			Layouts: filepath.Join(root, "src", "layouts"),
			Cache:   filepath.Join(root, ".cache"),
		},
	}

	writeFile(t, filepath.Join(cfg.Paths.Layouts, "base.html"), baseLayout)
	writeFile(t, filepath.Join(cfg.Paths.Pages, "index.html"),
		`{{template "base" .}}{{define "content"}}<ul>{{range .Posts}}<li><a href="{{url (printf "/%s" .Slug)}}">{{.Title}}</a> {{date .PublishedAt}}</li>{{end}}</ul>{{end}}`)
	writeFile(t, filepath.Join(cfg.Paths.Pages, "about.html"),
		`{{template "base" .}}{{define "content"}}<p class="{{class "components/card.module.css" "title"}}">{{title .Name}}</p>{{island "counter"}}{{end}}`)
	writeFile(t, filepath.Join(cfg.Paths.Pages, "404.html"),
		`{{template "base" .}}{{define "content"}}<p>Not found</p>{{end}}`)
	writeFile(t, filepath.Join(cfg.Paths.Pages, "post.html"),
		`{{template "base" .}}{{define "content"}}<article><h1>{{.Doc.Title}}</h1>{{.Cover}}{{render .Content}}</article>{{end}}`)
	writeFile(t, filepath.Join(cfg.Paths.Pages, "README.txt"), "ignored")

	writeFile(t, filepath.Join(cfg.Paths.Posts, "hello", "index.md"), "---\ntitle: Hello\npublishedAt: 2024-06-01\ncover: cover.svg\n---\n<Counter />\n")
	writeFile(t, filepath.Join(cfg.Paths.Posts, "hello", "cover.svg"), `<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	writeFile(t, cfg.Paths.StyleModuleCache(), `{"components/card.module.css":{"title":"card_title_x1"}}`)
	return cfg
}

func TestTemplatesLoad(t *testing.T) {
	cfg := newSite(t, "")
	p := NewPipeline(cfg, testIslands(t), nil, nil)

	pages, err := p.Pages()
	require.NoError(t, err)

	assert.Equal(t, []string{"404", "about", "index"}, pages.Names())
	require.NotNil(t, pages.Document)
	_, ok := pages.Get("post")
	assert.False(t, ok, "the document template is not a page")

	index, ok := pages.ByRoute("/")
	require.True(t, ok)
	assert.Equal(t, "index", index.Name)
	assert.Equal(t, "index.html", index.OutputPath)

	about, ok := pages.Get("about")
	require.True(t, ok)
	assert.Equal(t, "/about", about.Route)
	assert.Equal(t, "about/index.html", about.OutputPath)

	notFound, ok := pages.Get(NotFoundPage)
	require.True(t, ok)
	assert.Equal(t, "/404", notFound.Route)
	assert.Equal(t, "404.html", notFound.OutputPath)
}

func TestTemplatesLoadWithBasePath(t *testing.T) {
	cfg := newSite(t, "/blog")
	pages, err := NewPipeline(cfg, testIslands(t), nil, nil).Pages()
	require.NoError(t, err)

	index, ok := pages.ByRoute("/blog/")
	require.True(t, ok)
	assert.Equal(t, "index", index.Name)
}

func TestTemplatesLoadMissingDir(t *testing.T) {
	pages, err := (&Templates{PagesDir: filepath.Join(t.TempDir(), "missing")}).Load()
	require.NoError(t, err)
	assert.Empty(t, pages.Names())
	assert.Nil(t, pages.Document)
}

func TestTemplatesLoadParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.html"), `{{if}}`)
	_, err := (&Templates{PagesDir: dir}).Load()
	assert.Error(t, err)
}

func TestRenderPage(t *testing.T) {
	cfg := newSite(t, "/blog")
	p := NewPipeline(cfg, testIslands(t), nil, nil)
	ctx := context.Background()

	pages, err := p.Pages()
	require.NoError(t, err)
	docs, err := p.Documents(ctx)
	require.NoError(t, err)

	index, _ := pages.Get("index")
	out, err := RenderString(ctx, p.RenderPage(index, docs))
	require.NoError(t, err)
	assert.Contains(t, out, "<title>Field Notes</title>")
	assert.Contains(t, out, `<a href="/blog/hello">Hello</a> June 1, 2024`)

	about, _ := pages.Get("about")
	out, err = RenderString(ctx, p.RenderPage(about, docs))
	require.NoError(t, err)
	assert.Contains(t, out, `<p class="card_title_x1">About</p>`)
	assert.Equal(t, []string{"counter"}, DetectIslands(out))
}

func TestRenderDocument(t *testing.T) {
	cfg := newSite(t, "")
	p := NewPipeline(cfg, testIslands(t), nil, nil)
	ctx := context.Background()

	pages, err := p.Pages()
	require.NoError(t, err)
	docs, err := p.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	c, err := p.RenderDocument(ctx, pages, docs[0])
	require.NoError(t, err)

	a := &Assembler{URLs: p.URLs}
	out, islands, err := p.RenderHTML(ctx, a, "document", c)
	require.NoError(t, err)

	assert.Equal(t, []string{"counter"}, islands)
	assert.Contains(t, out, "<h1>Hello</h1>")
	assert.Contains(t, out, `<div><svg xmlns="http://www.w3.org/2000/svg"></svg></div>`)
	assert.Contains(t, out, `<script type="module" src="/islands/counter.js"></script>`)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
}

func TestRenderDocumentWithoutTemplate(t *testing.T) {
	cfg := newSite(t, "")
	p := NewPipeline(cfg, testIslands(t), nil, nil)
	docs, err := p.Documents(context.Background())
	require.NoError(t, err)

	_, err = p.RenderDocument(context.Background(), &Pages{}, docs[0])
	assert.Error(t, err)
}

func TestUnknownIslandFails(t *testing.T) {
	cfg := newSite(t, "")
	writeFile(t, filepath.Join(cfg.Paths.Pages, "bad.html"), `{{island "nope"}}`)
	p := NewPipeline(cfg, testIslands(t), nil, nil)

	pages, err := p.Pages()
	require.NoError(t, err)
	bad, ok := pages.Get("bad")
	require.True(t, ok)

	_, err = RenderString(context.Background(), p.RenderPage(bad, nil))
	assert.Error(t, err)
}

func TestDisplayDate(t *testing.T) {
	d, err := ParseDate("2024-06-01")
	require.NoError(t, err)

	assert.Equal(t, "June 1, 2024", displayDate(d))
	assert.Equal(t, "June 1, 2024", displayDate(&d))
	assert.Equal(t, "June 1, 2024", displayDate(d.Time))
	assert.Equal(t, "June 1, 2024", displayDate("2024-06-01"))
	assert.Equal(t, "soon", displayDate("soon"))
	assert.Empty(t, displayDate((*Date)(nil)))
	assert.Empty(t, displayDate(42))
}

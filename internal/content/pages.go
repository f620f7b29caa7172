package content

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/registry"
	"github.com/conneroisu/isle/internal/styles"
)

const (
	// TemplateExt is the extension of page and layout templates.
	TemplateExt = ".html"
	// DocumentTemplate is the reserved page that renders documents.
	DocumentTemplate = "post"
	// NotFoundPage is rendered for unmatched routes.
	NotFoundPage = "404"
)

// Page is a discovered page template.
type Page struct {
	Name       string
	Route      string
	OutputPath string
	tmpl       *template.Template
}

// Component binds data to the page.
func (p *Page) Component(data any) templ.Component {
	return templ.FromGoHTML(p.tmpl, data)
}

// Pages is the page table of one discovery pass.
type Pages struct {
	byName   map[string]*Page
	names    []string
	Document *Page
}

// Get returns the page called name.
func (ps *Pages) Get(name string) (*Page, bool) {
	p, ok := ps.byName[name]
	return p, ok
}

// ByRoute returns the page serving route.
func (ps *Pages) ByRoute(route string) (*Page, bool) {
	for _, name := range ps.names {
		if p := ps.byName[name]; p.Route == route {
			return p, true
		}
	}
	return nil, false
}

// Names returns page names in sorted order, without the document template.
func (ps *Pages) Names() []string {
	return append([]string(nil), ps.names...)
}

// All returns the pages in name order.
func (ps *Pages) All() []*Page {
	out := make([]*Page, 0, len(ps.names))
	for _, n := range ps.names {
		out = append(out, ps.byName[n])
	}
	return out
}

// Templates discovers pages and parses them together with shared layouts.
type Templates struct {
	PagesDir   string
	LayoutsDir string
	URLs       URLs
	Funcs      template.FuncMap
}

// Load discovers every page template. Each page is parsed in its own set
// so pages may define the same blocks.
func (t *Templates) Load() (*Pages, error) {
	entries, err := os.ReadDir(t.PagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Pages{byName: map[string]*Page{}}, nil
		}
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read pages directory").WithFile(t.PagesDir)
	}

	var layouts []string
	if t.LayoutsDir != "" {
		if layouts, err = filepath.Glob(filepath.Join(t.LayoutsDir, "*"+TemplateExt)); err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeInvalidPath, "bad layouts pattern")
		}
		sort.Strings(layouts)
	}

	ps := &Pages{byName: make(map[string]*Page)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), TemplateExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), TemplateExt)
		tmpl, err := t.parse(name, filepath.Join(t.PagesDir, e.Name()), layouts)
		if err != nil {
			return nil, err
		}
		page := &Page{
			Name:       name,
			Route:      t.URLs.PageRoute(name),
			OutputPath: PageOutputPath(name),
			tmpl:       tmpl,
		}
		if name == DocumentTemplate {
			ps.Document = page
			continue
		}
		ps.byName[name] = page
		ps.names = append(ps.names, name)
	}
	sort.Strings(ps.names)
	return ps, nil
}

func (t *Templates) parse(name, file string, layouts []string) (*template.Template, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read page").WithFile(file)
	}
	tmpl := template.New(name).Funcs(t.Funcs)
	if len(layouts) > 0 {
		if tmpl, err = tmpl.ParseFiles(layouts...); err != nil {
			return nil, errors.NewBuildError(errors.ErrCodePageRender, "failed to parse layouts", err).WithUnit(name)
		}
	}
	// ParseFiles leaves the receiver empty; the page body becomes its content
	if _, err := tmpl.Parse(string(src)); err != nil {
		return nil, errors.NewBuildError(errors.ErrCodePageRender, "failed to parse page", err).WithUnit(name).WithFile(file)
	}
	return tmpl, nil
}

// FuncsConfig feeds the template helpers.
type FuncsConfig struct {
	URLs       URLs
	StyleCache string
	Islands    *registry.Registry
}

// Funcs returns the helpers available to every template:
//
//	url     prefix a path with the base path
//	class   generated class of a logical name in a style module
//	island  marker element of a registered island
//	date    display form of a date
//	render  embed a component
//	title   title-case a string
func Funcs(cfg FuncsConfig) template.FuncMap {
	return template.FuncMap{
		"url": cfg.URLs.URL,
		"class": func(source, logical string) string {
			return styles.ClassName(cfg.StyleCache, source, logical)
		},
		"island": func(name string) (template.HTML, error) {
			if cfg.Islands == nil {
				return "", fmt.Errorf("unknown island %q", name)
			}
			def, ok := cfg.Islands.Get(name)
			if !ok {
				return "", fmt.Errorf("unknown island %q", name)
			}
			return template.HTML(def.Marker()), nil
		},
		"date": displayDate,
		"render": func(c templ.Component) (template.HTML, error) {
			if c == nil {
				return "", nil
			}
			return templ.ToGoHTML(context.Background(), c)
		},
		"title": func(s string) string {
			return cases.Title(language.English).String(s)
		},
	}
}

func displayDate(v any) string {
	switch d := v.(type) {
	case Date:
		return d.Display()
	case *Date:
		if d == nil {
			return ""
		}
		return d.Display()
	case time.Time:
		return Date{d}.Display()
	case string:
		if parsed, err := ParseDate(d); err == nil {
			return parsed.Display()
		}
		return d
	default:
		return ""
	}
}

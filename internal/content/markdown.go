package content

import (
	"bytes"
	"context"
	"io"
	"regexp"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/registry"
)

// placeholderPattern matches <Name /> and <Name></Name> island placeholders
// left as raw HTML by the markdown renderer. Escaped text inside code is
// never matched.
var placeholderPattern = regexp.MustCompile(`<([A-Z][A-Za-z0-9]*)\s*(?:/>|>\s*</([A-Z][A-Za-z0-9]*)>)`)

// Markdown compiles document bodies.
type Markdown struct {
	md      goldmark.Markdown
	islands *registry.Registry
}

// NewMarkdown creates a compiler resolving placeholders against islands.
func NewMarkdown(islands *registry.Registry) *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithUnsafe(),
			),
		),
		islands: islands,
	}
}

// Compile renders body to HTML with island placeholders expanded.
func (m *Markdown) Compile(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(body, &buf); err != nil {
		return nil, errors.NewBuildError(errors.ErrCodeDocumentParse, "failed to render markdown", err)
	}
	return m.expandPlaceholders(buf.Bytes()), nil
}

// Component compiles body into a renderable component.
func (m *Markdown) Component(body []byte) (templ.Component, error) {
	out, err := m.Compile(body)
	if err != nil {
		return nil, err
	}
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := w.Write(out)
		return err
	}), nil
}

func (m *Markdown) expandPlaceholders(src []byte) []byte {
	if m.islands == nil || m.islands.Len() == 0 {
		return src
	}
	return placeholderPattern.ReplaceAllFunc(src, func(match []byte) []byte {
		sub := placeholderPattern.FindSubmatch(match)
		if len(sub[2]) > 0 && !bytes.Equal(sub[1], sub[2]) {
			return match
		}
		def, ok := m.islands.ByPlaceholder(string(sub[1]))
		if !ok {
			return match
		}
		return []byte(def.Marker())
	})
}

package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/isle/internal/registry"
)

const testDocument = `<html><head><title>x</title></head><body><p>hi</p></body></html>`

func TestDetectIslands(t *testing.T) {
	markup := `<main>
<div data-island="chart"></div>
<section><div data-island="counter"></div></section>
<div data-island="chart"></div>
<div data-island=""></div>
</main>`
	assert.Equal(t, []string{"chart", "counter"}, DetectIslands(markup))
	assert.Empty(t, DetectIslands("<p>plain</p>"))
}

func TestInject(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		head   string
		body   string
		want   string
	}{
		{
			name:   "both tags",
			markup: testDocument,
			head:   "H",
			body:   "B",
			want:   `<html><head><title>x</title>H</head><body><p>hi</p>B</body></html>`,
		},
		{
			name:   "nothing to inject",
			markup: testDocument,
			want:   testDocument,
		},
		{
			name:   "fragment",
			markup: "<p>hi</p>",
			head:   "H",
			body:   "B",
			want:   "H<p>hi</p>B",
		},
		{
			name:   "closing tags inside scripts are ignored",
			markup: `<html><head></head><body><script>document.write("</body>")</script></body></html>`,
			body:   "B",
			want:   `<html><head></head><body><script>document.write("</body>")</script>B</body></html>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Inject(tt.markup, tt.head, tt.body))
		})
	}
}

func TestIslandTags(t *testing.T) {
	tags := IslandTags(URLs{BasePath: "/blog"}, []string{"a", "b"})
	lines := strings.Split(strings.TrimSpace(tags), "\n")
	assert.Equal(t, []string{
		`<link rel="stylesheet" href="/blog/islands/a.css">`,
		`<link rel="stylesheet" href="/blog/islands/b.css">`,
		`<script type="module" src="/blog/islands/a.js"></script>`,
		`<script type="module" src="/blog/islands/b.js"></script>`,
	}, lines)
	assert.Empty(t, IslandTags(URLs{}, nil))
}

func TestAssemble(t *testing.T) {
	var requested []string
	a := &Assembler{
		ImportMap: func(_ context.Context, islands []string) (string, error) {
			requested = islands
			return "<script type=\"importmap\">{}</script>", nil
		},
		BodySuffix: "<script>reload()</script>",
	}

	markup := `<html><head></head><body><div data-island="counter"></div></body></html>`
	out, islands, err := a.Assemble(context.Background(), markup)
	require.NoError(t, err)

	assert.Equal(t, []string{"counter"}, islands)
	assert.Equal(t, []string{"counter"}, requested)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Less(t, strings.Index(out, "importmap"), strings.Index(out, "</head>"))
	assert.Less(t, strings.Index(out, "/islands/counter.js"), strings.Index(out, "reload()"))
	assert.Less(t, strings.Index(out, "reload()"), strings.Index(out, "</body>"))
}

func TestAssembleSkipsUnregisteredIslands(t *testing.T) {
	var requested []string
	a := &Assembler{
		ImportMap: func(_ context.Context, islands []string) (string, error) {
			requested = islands
			return "<script type=\"importmap\">{}</script>", nil
		},
		Islands: registry.MustNew(map[string]string{"counter": "components/counter.tsx"}),
	}

	markup := `<html><head></head><body><div data-island="ghost"></div><div data-island="counter"></div></body></html>`
	out, islands, err := a.Assemble(context.Background(), markup)
	require.NoError(t, err)

	assert.Equal(t, []string{"counter"}, islands)
	assert.Equal(t, []string{"counter"}, requested)
	assert.Contains(t, out, "/islands/counter.js")
	assert.NotContains(t, out, "/islands/ghost.")

	out, islands, err = a.Assemble(context.Background(), `<html><head></head><body><div data-island="ghost"></div></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, islands)
	assert.NotContains(t, out, "importmap")
}

func TestAssembleWithoutIslands(t *testing.T) {
	called := false
	a := &Assembler{ImportMap: func(context.Context, []string) (string, error) {
		called = true
		return "", nil
	}}

	out, islands, err := a.Assemble(context.Background(), "<!doctype html>"+testDocument)
	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, islands)
	assert.Equal(t, "<!doctype html>"+testDocument, out)
}

func TestAssembleImportMapError(t *testing.T) {
	a := &Assembler{ImportMap: func(context.Context, []string) (string, error) {
		return "", errors.New("react is not declared")
	}}
	_, _, err := a.Assemble(context.Background(), `<div data-island="counter"></div>`)
	assert.Error(t, err)
}

package content

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cover.svg"), "<svg></svg>")

	tests := []struct {
		name string
		doc  Document
		urls URLs
		want string
	}{
		{"svg is inlined", Document{Slug: "hello", Dir: dir, Cover: "cover.svg"}, URLs{}, "<div><svg></svg></div>"},
		{"raster image", Document{Slug: "hello", Dir: dir, Cover: "photo.JPG"}, URLs{}, `<img src="/hello/photo.JPG" alt="">`},
		{"raster under base path", Document{Slug: "hello", Dir: dir, Cover: "./photo.webp"}, URLs{BasePath: "/blog"}, `<img src="/blog/hello/photo.webp" alt="">`},
		{"unsupported type", Document{Slug: "hello", Dir: dir, Cover: "clip.mp4"}, URLs{}, ""},
		{"single-file document", Document{Slug: "hello", Cover: "cover.svg"}, URLs{}, ""},
		{"no cover", Document{Slug: "hello", Dir: dir}, URLs{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cover(tt.doc, tt.urls)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestCoverMissingSVG(t *testing.T) {
	_, err := Cover(Document{Slug: "hello", Dir: t.TempDir(), Cover: "gone.svg"}, URLs{})
	assert.Error(t, err)
}

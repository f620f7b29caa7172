package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		fm      string
		body    string
		had     bool
		wantErr error
	}{
		{
			name: "front matter and body",
			src:  "---\ntitle: A\n---\nbody",
			fm:   "title: A\n",
			body: "body",
			had:  true,
		},
		{
			name: "windows line endings",
			src:  "---\r\ntitle: A\r\n---\r\nbody",
			fm:   "title: A\r\n",
			body: "body",
			had:  true,
		},
		{
			name: "empty front matter",
			src:  "---\n---\nbody",
			fm:   "",
			body: "body",
			had:  true,
		},
		{
			name: "no front matter",
			src:  "# Heading\n",
			body: "# Heading\n",
		},
		{
			name:    "unterminated",
			src:     "---\ntitle: A\nbody",
			wantErr: ErrMissingClosingDelimiter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, had, err := SplitFrontMatter([]byte(tt.src))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.had, had)
			assert.Equal(t, tt.fm, string(fm))
			assert.Equal(t, tt.body, string(body))
		})
	}
}

func TestParseFrontMatter(t *testing.T) {
	src := []byte(`---
title: Hello
subtitle: A first post
publishedAt: 2024-06-01
image: cover.png
---
Body text
`)
	fm, body, err := ParseFrontMatter(src)
	require.NoError(t, err)

	assert.Equal(t, "Hello", fm.Title)
	assert.Equal(t, "A first post", fm.Subtitle)
	assert.Equal(t, "cover.png", fm.Image)
	assert.True(t, fm.PublishedAt.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, fm.UpdatedAt)
	assert.Equal(t, "Body text\n", string(body))
}

func TestParseFrontMatterInvalidDate(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("---\npublishedAt: someday\n---\n"))
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-06-01", "2024-06-01T10:00:00Z", "June 1, 2024", "Jun 1, 2024"} {
		d, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, "June 1, 2024", d.Display(), s)
	}
	assert.Empty(t, Date{}.Display())
}

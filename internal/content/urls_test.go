package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	root := URLs{}
	blog := URLs{BasePath: "/blog"}

	tests := []struct {
		urls URLs
		in   string
		want string
	}{
		{root, "/", "/"},
		{root, "/about", "/about"},
		{root, "about", "/about"},
		{blog, "/", "/blog/"},
		{blog, "/about", "/blog/about"},
		{blog, "https://example.com/x", "https://example.com/x"},
		{blog, "mailto:me@example.com", "mailto:me@example.com"},
		{blog, "//cdn.example.com/a.js", "//cdn.example.com/a.js"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.urls.URL(tt.in), "%q with base %q", tt.in, tt.urls.BasePath)
	}
}

func TestStrip(t *testing.T) {
	blog := URLs{BasePath: "/blog"}

	p, ok := blog.Strip("/blog/about")
	assert.True(t, ok)
	assert.Equal(t, "/about", p)

	p, ok = blog.Strip("/blog")
	assert.True(t, ok)
	assert.Equal(t, "/", p)

	_, ok = blog.Strip("/blogroll")
	assert.False(t, ok)

	p, ok = URLs{}.Strip("/about")
	assert.True(t, ok)
	assert.Equal(t, "/about", p)
}

func TestRoutesAndOutputs(t *testing.T) {
	u := URLs{}
	assert.Equal(t, "/", u.PageRoute("index"))
	assert.Equal(t, "/404", u.PageRoute("404"))
	assert.Equal(t, "/about", u.PageRoute("about"))
	assert.Equal(t, "/hello", u.DocumentRoute("hello"))

	assert.Equal(t, "index.html", PageOutputPath("index"))
	assert.Equal(t, "404.html", PageOutputPath("404"))
	assert.Equal(t, "about/index.html", PageOutputPath("about"))
	assert.Equal(t, "hello/index.html", DocumentOutputPath("hello"))
}

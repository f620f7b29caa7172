package content

import (
	"path"
	"strings"
)

// URLs prefixes site paths with the configured base path.
type URLs struct {
	BasePath string
}

// URL prefixes p with the base path. External URLs and protocol handlers
// such as mailto: are returned unchanged.
func (u URLs) URL(p string) string {
	if strings.HasPrefix(p, "//") || strings.Contains(p, ":") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if u.BasePath == "" {
		return p
	}
	if p == "/" {
		return u.BasePath + "/"
	}
	return u.BasePath + p
}

// Strip removes the base path from a request path. It reports false when
// the path lies outside the base path.
func (u URLs) Strip(p string) (string, bool) {
	if u.BasePath == "" {
		return p, true
	}
	if p == u.BasePath {
		return "/", true
	}
	rest, ok := strings.CutPrefix(p, u.BasePath+"/")
	if !ok {
		return "", false
	}
	return "/" + rest, true
}

// PageRoute maps a page name to its route: index -> /, 404 -> /404,
// anything else -> /name.
func (u URLs) PageRoute(name string) string {
	switch name {
	case "index":
		return u.URL("/")
	default:
		return u.URL("/" + name)
	}
}

// DocumentRoute is the route of a document slug.
func (u URLs) DocumentRoute(slug string) string {
	return u.URL("/" + slug)
}

// PageOutputPath is the slash-separated output file of a page.
func PageOutputPath(name string) string {
	switch name {
	case "index":
		return "index.html"
	case "404":
		return "404.html"
	default:
		return path.Join(name, "index.html")
	}
}

// DocumentOutputPath is the slash-separated output file of a document.
func DocumentOutputPath(slug string) string {
	return path.Join(slug, "index.html")
}

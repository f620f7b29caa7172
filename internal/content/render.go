package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/registry"
)

// RenderString renders c to a string.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// DetectIslands returns the island names referenced by marker attributes in
// markup, de-duplicated in order of first appearance.
func DetectIslands(markup string) []string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var islands []string
	seen := make(map[string]bool)
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == registry.MarkerAttribute && attr.Val != "" && !seen[attr.Val] {
					seen[attr.Val] = true
					islands = append(islands, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return islands
}

// Inject inserts head before the closing head tag and body before the
// closing body tag. Missing tags are tolerated: head content then goes
// first, body content last.
func Inject(markup, head, body string) string {
	if head == "" && body == "" {
		return markup
	}
	headAt, bodyAt := closingTagOffsets(markup)

	var b strings.Builder
	b.Grow(len(markup) + len(head) + len(body))
	switch {
	case head == "":
	case headAt >= 0:
		b.WriteString(markup[:headAt])
		b.WriteString(head)
		markup = markup[headAt:]
		if bodyAt >= 0 {
			bodyAt -= headAt
		}
	default:
		b.WriteString(head)
	}
	if body == "" {
		b.WriteString(markup)
		return b.String()
	}
	if bodyAt >= 0 {
		b.WriteString(markup[:bodyAt])
		b.WriteString(body)
		b.WriteString(markup[bodyAt:])
	} else {
		b.WriteString(markup)
		b.WriteString(body)
	}
	return b.String()
}

// closingTagOffsets finds the byte offsets of the first </head> and the
// last </body> end tags, or -1. Text inside scripts and comments is skipped
// by the tokenizer.
func closingTagOffsets(markup string) (head, body int) {
	head, body = -1, -1
	z := html.NewTokenizer(strings.NewReader(markup))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return head, body
		}
		raw := len(z.Raw())
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Head:
				if head < 0 {
					head = offset
				}
			case atom.Body:
				body = offset
			}
		}
		offset += raw
	}
}

// IslandTags renders the stylesheet and module script tags for islands.
func IslandTags(urls URLs, islands []string) string {
	if len(islands) == 0 {
		return ""
	}
	var b strings.Builder
	for _, name := range islands {
		fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"%s\">\n", html.EscapeString(urls.URL("/islands/"+name+".css")))
	}
	for _, name := range islands {
		fmt.Fprintf(&b, "<script type=\"module\" src=\"%s\"></script>\n", html.EscapeString(urls.URL("/islands/"+name+".js")))
	}
	return b.String()
}

// ImportMapFunc returns the import map tag for a page using islands.
type ImportMapFunc func(ctx context.Context, islands []string) (string, error)

// Assembler turns rendered markup into a final document.
type Assembler struct {
	URLs      URLs
	ImportMap ImportMapFunc
	// BodySuffix is appended before </body> on every page (the dev reload script).
	BodySuffix string
	// Islands, when set, limits detected markers to registered islands.
	Islands *registry.Registry
	Logger  logging.Logger
}

// Assemble adds the doctype and, when the markup uses islands, the scoped
// import map and island tags. It returns the islands found.
func (a *Assembler) Assemble(ctx context.Context, markup string) (string, []string, error) {
	islands := a.known(ctx, DetectIslands(markup))

	var head string
	if len(islands) > 0 && a.ImportMap != nil {
		tag, err := a.ImportMap(ctx, islands)
		if err != nil {
			return "", islands, err
		}
		head = tag
	}
	body := IslandTags(a.URLs, islands) + a.BodySuffix

	out := Inject(markup, head, body)
	if !hasDoctype(out) {
		out = "<!DOCTYPE html>" + out
	}
	return out, islands, nil
}

// known drops marker names that are not in the registry. Their bundles
// would never resolve.
func (a *Assembler) known(ctx context.Context, names []string) []string {
	if a.Islands == nil || len(names) == 0 {
		return names
	}
	out := names[:0:0]
	for _, name := range names {
		if _, ok := a.Islands.Get(name); ok {
			out = append(out, name)
			continue
		}
		if a.Logger != nil {
			a.Logger.Warn(ctx, nil, "Ignoring marker for unregistered island", "island", name)
		}
	}
	return out
}

// Render renders c and assembles the result.
func (a *Assembler) Render(ctx context.Context, c templ.Component) (string, []string, error) {
	markup, err := RenderString(ctx, c)
	if err != nil {
		return "", nil, err
	}
	return a.Assemble(ctx, markup)
}

func hasDoctype(markup string) bool {
	trimmed := strings.TrimLeft(markup, " \t\r\n")
	return len(trimmed) >= 9 && strings.EqualFold(trimmed[:9], "<!doctype")
}

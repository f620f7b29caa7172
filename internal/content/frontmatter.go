package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// SplitFrontMatter separates `---` delimited YAML from the document body.
// A document without front matter returns had == false and the full input.
func SplitFrontMatter(src []byte) (fm []byte, body []byte, had bool, err error) {
	nl := "\n"
	if i := bytes.IndexByte(src, '\n'); i > 0 && src[i-1] == '\r' {
		nl = "\r\n"
	}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(src, open) {
		return nil, src, false, nil
	}
	start := len(open)
	if bytes.HasPrefix(src[start:], open) {
		return []byte{}, src[start+len(open):], true, nil
	}

	closing := []byte(nl + "---")
	idx := bytes.Index(src[start:], closing)
	if idx < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	end := start + idx + len(nl)
	rest := src[start+idx+len(closing):]
	switch {
	case bytes.HasPrefix(rest, []byte(nl)):
		rest = rest[len(nl):]
	case len(rest) == 0:
	default:
		// "---x" is not a delimiter line
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	return src[start:end], rest, true, nil
}

// Date is a front matter date accepting the common layouts authors write.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate parses s with the first matching layout.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t}, nil
		}
	}
	return Date{}, fmt.Errorf("could not parse date %q; use YYYY-MM-DD or RFC3339", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: date must be a scalar", node.Line)
	}
	if node.Value == "" || node.Tag == "!!null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = parsed
	return nil
}

// Display formats the date for pages, e.g. "June 1, 2024".
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("January 2, 2006")
}

// FrontMatter is the metadata block of a content document.
type FrontMatter struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Subtitle    string `yaml:"subtitle"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	Cover       string `yaml:"cover"`
	PublishedAt Date   `yaml:"publishedAt"`
	UpdatedAt   *Date  `yaml:"updatedAt"`
}

// ParseFrontMatter splits src and decodes its front matter.
func ParseFrontMatter(src []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter
	raw, body, had, err := SplitFrontMatter(src)
	if err != nil {
		return fm, nil, err
	}
	if !had || len(bytes.TrimSpace(raw)) == 0 {
		return fm, body, nil
	}
	if err := yaml.Unmarshal(raw, &fm); err != nil {
		return fm, nil, fmt.Errorf("invalid front matter: %w", err)
	}
	return fm, body, nil
}

// Package registry holds the explicit island registry built once from
// configuration. Names are the join key between rendered markers, generated
// wrappers, bundle file names and /islands/ routes.
package registry

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/isle/internal/errors"
)

// MarkerAttribute is the attribute that names the island to mount into an element.
const MarkerAttribute = "data-island"

// Definition describes one island.
type Definition struct {
	Name string
	// SourcePath is relative to the source directory, forward slashes.
	SourcePath string
	// ExportName is empty for the default export.
	ExportName string
}

// Placeholder is the capitalized tag name documents use for the island,
// e.g. "counter" -> "Counter", "line-chart" -> "LineChart".
func (d Definition) Placeholder() string {
	return placeholderName(d.Name)
}

// Marker renders the empty element the hydration wrapper mounts into.
func (d Definition) Marker() string {
	return fmt.Sprintf(`<div %s="%s"></div>`, MarkerAttribute, d.Name)
}

// Registry is an immutable lookup table of islands.
type Registry struct {
	islands      map[string]Definition
	placeholders map[string]string
	names        []string
}

var (
	namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	// export names are spliced into generated source
	identifierPattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
)

// New builds a registry from "name -> path" or "name -> path#Export" entries.
func New(entries map[string]string) (*Registry, error) {
	r := &Registry{
		islands:      make(map[string]Definition, len(entries)),
		placeholders: make(map[string]string, len(entries)),
	}
	for name, entry := range entries {
		def, err := ParseDefinition(name, entry)
		if err != nil {
			return nil, err
		}
		ph := def.Placeholder()
		if other, ok := r.placeholders[ph]; ok {
			return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
				fmt.Sprintf("islands %q and %q share the placeholder <%s />", other, name, ph))
		}
		r.islands[name] = def
		r.placeholders[ph] = name
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// MustNew is New for statically known registries.
func MustNew(entries map[string]string) *Registry {
	r, err := New(entries)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseDefinition parses a single registry entry.
func ParseDefinition(name, entry string) (Definition, error) {
	if !namePattern.MatchString(name) {
		return Definition{}, errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("invalid island name %q", name)).WithUnit(name)
	}
	src, export, _ := strings.Cut(strings.TrimSpace(entry), "#")
	src = path.Clean(strings.ReplaceAll(src, "\\", "/"))
	if src == "." || src == "" || strings.HasPrefix(src, "../") || path.IsAbs(src) {
		return Definition{}, errors.ErrInvalidPath(entry).WithUnit(name)
	}
	export = strings.TrimSpace(export)
	if export != "" && !identifierPattern.MatchString(export) {
		return Definition{}, errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("invalid export name %q", export)).WithUnit(name)
	}
	return Definition{Name: name, SourcePath: src, ExportName: export}, nil
}

// Get returns the island called name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.islands[name]
	return def, ok
}

// ByPlaceholder resolves a capitalized placeholder tag to its island.
func (r *Registry) ByPlaceholder(tag string) (Definition, bool) {
	name, ok := r.placeholders[tag]
	if !ok {
		return Definition{}, false
	}
	return r.islands[name], true
}

// Names returns the island names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// All returns every definition in name order.
func (r *Registry) All() []Definition {
	defs := make([]Definition, 0, len(r.names))
	for _, name := range r.names {
		defs = append(defs, r.islands[name])
	}
	return defs
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.islands[name]
	return ok
}

// Len returns the number of islands.
func (r *Registry) Len() int {
	return len(r.names)
}

func placeholderName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	caser := cases.Title(language.Und)
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(caser.String(p))
	}
	return b.String()
}

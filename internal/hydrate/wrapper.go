// Package hydrate generates the entry module that mounts an island into
// every element carrying its marker attribute.
package hydrate

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"text/template"

	"github.com/conneroisu/isle/internal/registry"
)

// WrapperSuffix names generated entry files in the cache directory.
const WrapperSuffix = "-wrapper.tsx"

var wrapperTemplate = template.Must(template.New("wrapper").Funcs(template.FuncMap{
	"js": jsString,
}).Parse(`import { createRoot } from 'react-dom/client'
{{if .Export}}import { {{.Export}} as Component } from {{js .Import}}
{{else}}import Component from {{js .Import}}
{{end}}
const hydrate = () => {
  document.querySelectorAll({{js .Selector}}).forEach((el) => {
    createRoot(el).render(<Component />)
  })
}

if ('requestIdleCallback' in window) {
  requestIdleCallback(hydrate)
} else {
  hydrate()
}
`))

// Selector is the CSS selector matching the marker elements of name.
func Selector(name string) string {
	return "[" + registry.MarkerAttribute + `="` + name + `"]`
}

// WrapperFile is the cache file name of the generated entry for name.
func WrapperFile(name string) string {
	return name + WrapperSuffix
}

// Generate returns the entry module source for def. The island is imported
// by absolute path below srcDir.
func Generate(def registry.Definition, srcDir string) (string, error) {
	source := filepath.ToSlash(filepath.Join(srcDir, filepath.FromSlash(def.SourcePath)))

	var buf bytes.Buffer
	err := wrapperTemplate.Execute(&buf, struct {
		Import   string
		Export   string
		Selector string
	}{
		Import:   source,
		Export:   def.ExportName,
		Selector: Selector(def.Name),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func jsString(s string) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

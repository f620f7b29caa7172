package bundler

import (
	"encoding/json"
	"sort"
)

// Metafile represents the esbuild metafile JSON structure
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput represents an input file in the metafile
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"`
}

// MetafileImport represents an import in the metafile
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput represents an output file in the metafile
type MetafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Imports    []MetafileImport        `json:"imports"`
	Exports    []string                `json:"exports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

// InputContrib represents the contribution of an input to an output
type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// ParseMetafile decodes the metafile string esbuild returns.
func ParseMetafile(raw string) (*Metafile, error) {
	if raw == "" {
		return nil, nil
	}
	var m Metafile
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// OutputBytes is the total size of every output.
func (m *Metafile) OutputBytes() int {
	if m == nil {
		return 0
	}
	total := 0
	for _, out := range m.Outputs {
		total += out.Bytes
	}
	return total
}

// ExternalImports lists the sorted, de-duplicated specifiers left external.
func (m *Metafile) ExternalImports() []string {
	if m == nil {
		return nil
	}
	set := make(map[string]struct{})
	for _, out := range m.Outputs {
		for _, imp := range out.Imports {
			if imp.External {
				set[imp.Path] = struct{}{}
			}
		}
	}
	list := make([]string, 0, len(set))
	for p := range set {
		list = append(list, p)
	}
	sort.Strings(list)
	return list
}

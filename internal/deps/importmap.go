package deps

import (
	"context"
	"encoding/json"
	"fmt"
)

// ImportMap maps module specifiers to URLs.
type ImportMap map[string]string

// BuildImportMap merges the runtime modules with extra. A runtime module
// missing from the manifest is fatal; an undeclared extra is dropped.
func (r *Resolver) BuildImportMap(ctx context.Context, extra []string) (ImportMap, error) {
	imports := make(ImportMap)
	for _, m := range Runtime {
		version, err := r.Manifest.Version(m.Package)
		if err != nil {
			return nil, err
		}
		for _, sub := range m.Subpaths {
			imports[m.Package+sub] = fmt.Sprintf("%s/%s@%s%s", r.CDN, m.Package, version, sub)
		}
	}
	for _, dep := range extra {
		if _, ok := imports[dep]; ok {
			continue
		}
		version, err := r.Manifest.Version(dep)
		if err != nil {
			r.logger.Warn(ctx, err, "Leaving undeclared dependency out of import map", "package", dep)
			continue
		}
		imports[dep] = fmt.Sprintf("%s/%s@%s", r.CDN, dep, version)
		// deep imports such as "lodash-es/debounce"
		imports[dep+"/"] = fmt.Sprintf("%s/%s@%s/", r.CDN, dep, version)
	}
	return imports, nil
}

// ExternalModuleNames returns the specifiers the bundler must leave
// unresolved: every runtime entry followed by extra. Each extra also gets a
// "dep/*" pattern matching the deep-import entry of the import map.
func ExternalModuleNames(extra []string) []string {
	var out []string
	for _, m := range Runtime {
		for _, sub := range m.Subpaths {
			out = append(out, m.Package+sub)
		}
	}
	seen := make(map[string]bool, len(out))
	for _, s := range out {
		seen[s] = true
	}
	for _, dep := range extra {
		if !seen[dep] {
			seen[dep] = true
			out = append(out, dep, dep+"/*")
		}
	}
	return out
}

// Tag renders the import map as a script element.
func (im ImportMap) Tag() (string, error) {
	body, err := json.MarshalIndent(struct {
		Imports ImportMap `json:"imports"`
	}{im}, "", "  ")
	if err != nil {
		return "", err
	}
	return "<script type=\"importmap\">\n" + string(body) + "\n</script>", nil
}

package deps

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/registry"
)

// RuntimeModule is a package that is always externalized, with the
// sub-path entries islands may import.
type RuntimeModule struct {
	Package  string
	Subpaths []string
}

// Runtime lists the view runtime modules shared by every island.
var Runtime = []RuntimeModule{
	{Package: "react", Subpaths: []string{"", "/jsx-runtime", "/jsx-dev-runtime"}},
	{Package: "react-dom", Subpaths: []string{"", "/client"}},
}

// DefaultCDN serves every externalized module.
const DefaultCDN = "https://esm.sh"

var (
	importPattern = regexp.MustCompile(`(?:import|from)\s+['"]([^'"]+)['"]`)
	sourceExts    = []string{".tsx", ".ts", ".jsx", ".js", ".mjs"}
)

// Resolver scans island sources for external imports.
type Resolver struct {
	SrcDir   string
	Manifest *Manifest
	CDN      string

	logger logging.Logger
}

// NewResolver creates a resolver for islands below srcDir.
func NewResolver(srcDir string, manifest *Manifest, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Resolver{
		SrcDir:   srcDir,
		Manifest: manifest,
		CDN:      DefaultCDN,
		logger:   logger.WithComponent("deps"),
	}
}

// Dependencies is the result of scanning a set of islands.
type Dependencies struct {
	// All is the sorted union over every island.
	All []string
	// ByIsland holds each island's own sorted set.
	ByIsland map[string][]string
}

// ForIslands returns the sorted union of the dependencies of the named islands.
func (d *Dependencies) ForIslands(names []string) []string {
	if d == nil {
		return nil
	}
	set := make(map[string]struct{})
	for _, n := range names {
		for _, dep := range d.ByIsland[n] {
			set[dep] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// ResolveIslandDependencies scans every island, following relative imports,
// and keeps only packages declared in the manifest. Undeclared packages are
// dropped with a warning. An unreadable island is logged and contributes nothing.
func (r *Resolver) ResolveIslandDependencies(ctx context.Context, defs []registry.Definition) *Dependencies {
	out := &Dependencies{ByIsland: make(map[string][]string, len(defs))}
	all := make(map[string]struct{})

	for _, def := range defs {
		found, err := r.scanIsland(def)
		if err != nil {
			r.logger.Warn(ctx, err, "Could not scan island for dependencies", "island", def.Name)
			continue
		}

		kept := make(map[string]struct{})
		for _, pkg := range found {
			if r.Manifest == nil || !r.Manifest.Has(pkg) {
				r.logger.Warn(ctx, nil, "Ignoring undeclared import", "island", def.Name, "package", pkg)
				continue
			}
			kept[pkg] = struct{}{}
			all[pkg] = struct{}{}
		}
		out.ByIsland[def.Name] = sortedKeys(kept)
	}

	out.All = sortedKeys(all)
	if len(out.All) > 0 {
		r.logger.Info(ctx, "Detected island dependencies", "packages", strings.Join(out.All, ", "))
	}
	return out
}

func (r *Resolver) scanIsland(def registry.Definition) ([]string, error) {
	entry := filepath.Join(r.SrcDir, filepath.FromSlash(def.SourcePath))
	if _, err := os.Stat(entry); err != nil {
		return nil, errors.WrapBuild(err, errors.ErrCodeFileNotFound, "island source missing", def.Name).WithFile(entry)
	}

	seen := make(map[string]bool)
	pkgs := make(map[string]struct{})
	var order []string

	queue := []string{entry}
	for len(queue) > 0 {
		file := queue[0]
		queue = queue[1:]
		if seen[file] {
			continue
		}
		seen[file] = true

		src, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.WrapBuild(err, errors.ErrCodeFileNotFound, "failed to read island source", def.Name).WithFile(file)
		}
		for _, spec := range importSpecifiers(src) {
			if isRelative(spec) {
				if next, ok := resolveLocal(filepath.Dir(file), spec); ok {
					queue = append(queue, next)
				}
				continue
			}
			pkg, ok := PackageName(spec)
			if !ok {
				continue
			}
			if _, dup := pkgs[pkg]; !dup {
				pkgs[pkg] = struct{}{}
				order = append(order, pkg)
			}
		}
	}
	return order, nil
}

// ScanImports returns the external packages referenced by source, in order
// of first appearance. Relative imports, runtime modules and platform
// built-ins are skipped.
func ScanImports(source []byte) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, spec := range importSpecifiers(source) {
		if isRelative(spec) {
			continue
		}
		pkg, ok := PackageName(spec)
		if !ok {
			continue
		}
		if _, dup := seen[pkg]; !dup {
			seen[pkg] = struct{}{}
			out = append(out, pkg)
		}
	}
	return out
}

// PackageName normalizes an import specifier to its package name, e.g.
// "@scope/pkg/sub" -> "@scope/pkg". It reports false for runtime modules
// and built-ins.
func PackageName(spec string) (string, bool) {
	if spec == "" || strings.HasPrefix(spec, "node:") || strings.Contains(spec, "://") {
		return "", false
	}
	parts := strings.Split(spec, "/")
	name := parts[0]
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", false
		}
		name = parts[0] + "/" + parts[1]
	}
	for _, m := range Runtime {
		if name == m.Package {
			return "", false
		}
	}
	return name, true
}

func importSpecifiers(src []byte) []string {
	matches := importPattern.FindAllSubmatch(src, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, string(m[1]))
	}
	return out
}

func isRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}

// resolveLocal finds the script a relative import points at. Non-script
// imports such as style modules resolve to nothing.
func resolveLocal(dir, spec string) (string, bool) {
	base := filepath.Join(dir, filepath.FromSlash(spec))
	if ext := path.Ext(spec); ext != "" {
		for _, e := range sourceExts {
			if ext == e {
				return base, fileExists(base)
			}
		}
	}
	for _, e := range sourceExts {
		if fileExists(base + e) {
			return base + e, true
		}
	}
	for _, e := range sourceExts {
		idx := filepath.Join(base, "index"+e)
		if fileExists(idx) {
			return idx, true
		}
	}
	return "", false
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

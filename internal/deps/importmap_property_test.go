//go:build property
// +build property

package deps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/isle/internal/registry"
)

var universe = []string{"alpha", "beta", "gamma", "delta", "@scope/eps"}

// TestImportMapProperties checks that a page's import map holds exactly the
// declared packages its islands import.
func TestImportMapProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	pick := gen.SliceOf(gen.IntRange(0, len(universe)-1))

	properties.Property("import map is exactly the declared imports of rendered islands", prop.ForAll(
		func(importsA, importsB, declared []int, renderB bool) bool {
			src, err := os.MkdirTemp("", "isle-deps-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(src)

			write := func(name string, picks []int) {
				var b strings.Builder
				b.WriteString("import { useState } from 'react'\n")
				for _, i := range picks {
					fmt.Fprintf(&b, "import x%d from '%s/sub'\n", i, universe[i])
				}
				_ = os.WriteFile(filepath.Join(src, name+".tsx"), []byte(b.String()), 0o644)
			}
			write("a", importsA)
			write("b", importsB)

			table := map[string]string{"react": "^19.0.0", "react-dom": "^19.0.0"}
			for _, i := range declared {
				table[universe[i]] = "1.0.0"
			}
			r := NewResolver(src, NewManifest("package.json", table), nil)
			found := r.ResolveIslandDependencies(context.Background(), []registry.Definition{
				{Name: "a", SourcePath: "a.tsx"},
				{Name: "b", SourcePath: "b.tsx"},
			})

			page := []string{"a"}
			expected := map[string]bool{}
			for _, i := range importsA {
				expected[universe[i]] = true
			}
			if renderB {
				page = append(page, "b")
				for _, i := range importsB {
					expected[universe[i]] = true
				}
			}

			im, err := r.BuildImportMap(context.Background(), found.ForIslands(page))
			if err != nil {
				return false
			}
			for _, pkg := range universe {
				_, declaredPkg := table[pkg]
				_, inMap := im[pkg]
				if inMap != (expected[pkg] && declaredPkg) {
					return false
				}
			}
			return true
		},
		pick, pick, pick, gen.Bool(),
	))

	properties.TestingRun(t)
}

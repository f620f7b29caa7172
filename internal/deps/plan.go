package deps

import (
	"context"
	"os"

	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/registry"
)

// Plan is the resolved dependency picture of a site's islands: what each
// island imports and what the bundler must leave external.
type Plan struct {
	Resolver     *Resolver
	Dependencies *Dependencies
	Externals    []string
}

// NewPlan loads the manifest and scans every registered island. A site
// without islands needs no manifest. With islands, a missing manifest or an
// undeclared runtime module is fatal.
func NewPlan(ctx context.Context, srcDir, manifestPath string, reg *registry.Registry, logger logging.Logger) (*Plan, error) {
	var manifest *Manifest
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) && reg.Len() == 0 {
		manifest = NewManifest(manifestPath, nil)
	} else {
		if manifest, err = LoadManifest(manifestPath); err != nil {
			return nil, errors.WrapConfig(err, errors.ErrCodeMissingDependency, "islands require a package manifest").
				WithFile(manifestPath)
		}
	}

	r := NewResolver(srcDir, manifest, logger)
	found := r.ResolveIslandDependencies(ctx, reg.All())

	if reg.Len() > 0 {
		if _, err := r.BuildImportMap(ctx, nil); err != nil {
			return nil, err
		}
	}

	return &Plan{
		Resolver:     r,
		Dependencies: found,
		Externals:    ExternalModuleNames(found.All),
	}, nil
}

// ImportMapTag renders the import map scoped to the islands of one page.
func (p *Plan) ImportMapTag(ctx context.Context, islands []string) (string, error) {
	im, err := p.Resolver.BuildImportMap(ctx, p.Dependencies.ForIslands(islands))
	if err != nil {
		return "", err
	}
	return im.Tag()
}

// Package bundler compiles generated hydration entries into browser
// modules, either into the output tree or on demand for the dev server.
package bundler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/hydrate"
	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/metrics"
	"github.com/conneroisu/isle/internal/registry"
)

// Target selects the compile profile.
type Target string

const (
	// TargetStatic minifies and writes into the output tree.
	TargetStatic Target = "static"
	// TargetDev compiles un-minified with development defines, in memory.
	TargetDev Target = "dev"
)

// IslandsDir is the output sub-directory for island bundles.
const IslandsDir = "islands"

// Output is one compiled island.
type Output struct {
	Name     string
	JS       []byte
	CSS      []byte
	Metafile *Metafile
}

// Report summarizes a static pass over the registry.
type Report struct {
	Built   []string
	Failed  []string
	Removed []string
	Errors  *errors.ErrorCollector
}

// Bundler compiles islands below SrcDir, keeping generated wrappers in CacheDir.
type Bundler struct {
	SrcDir   string
	CacheDir string

	logger  logging.Logger
	metrics metrics.Recorder
}

// New creates a bundler.
func New(srcDir, cacheDir string, logger logging.Logger, rec metrics.Recorder) *Bundler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Bundler{
		SrcDir:   srcDir,
		CacheDir: cacheDir,
		logger:   logger.WithComponent("bundler"),
		metrics:  metrics.OrNoop(rec),
	}
}

// Bundle generates the wrapper for def and compiles it for target,
// externalizing exactly externals.
func (b *Bundler) Bundle(ctx context.Context, def registry.Definition, externals []string, target Target) (*Output, error) {
	start := time.Now()
	out, err := b.bundle(def, externals, target)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultFailed
	}
	b.metrics.ObserveIslandBundle(def.Name, string(target), time.Since(start), result)
	if err != nil {
		return nil, err
	}
	b.logger.Debug(ctx, "Island bundled",
		"island", def.Name,
		"target", string(target),
		"bytes", out.Metafile.OutputBytes(),
		"externals", strings.Join(out.Metafile.ExternalImports(), ","),
		"duration", time.Since(start).String())
	return out, nil
}

func (b *Bundler) bundle(def registry.Definition, externals []string, target Target) (*Output, error) {
	source, err := hydrate.Generate(def, b.SrcDir)
	if err != nil {
		return nil, errors.ErrIslandBundle(def.Name, err)
	}
	entry, err := b.writeWrapper(def.Name, source)
	if err != nil {
		return nil, err
	}

	dev := target == TargetDev
	nodeEnv := `"production"`
	if dev {
		nodeEnv = `"development"`
	}

	res := api.Build(api.BuildOptions{
		EntryPoints:       []string{entry},
		EntryNames:        def.Name,
		Outdir:            filepath.Join(b.CacheDir, "out"),
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		Target:            api.ES2020,
		JSX:               api.JSXAutomatic,
		JSXDev:            dev,
		MinifyWhitespace:  !dev,
		MinifyIdentifiers: !dev,
		MinifySyntax:      !dev,
		External:          externals,
		Define:            map[string]string{"process.env.NODE_ENV": nodeEnv},
		Loader: map[string]api.Loader{
			".svg":  api.LoaderDataURL,
			".png":  api.LoaderDataURL,
			".jpg":  api.LoaderDataURL,
			".webp": api.LoaderDataURL,
		},
		LogLevel: api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		msgs := api.FormatMessages(res.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return nil, errors.ErrIslandBundle(def.Name, fmt.Errorf("%s", strings.TrimSpace(strings.Join(msgs, "\n")))).
			WithFile(def.SourcePath)
	}

	out := &Output{Name: def.Name}
	for _, f := range res.OutputFiles {
		switch filepath.Ext(f.Path) {
		case ".js":
			out.JS = f.Contents
		case ".css":
			out.CSS = f.Contents
		}
	}
	if mf, err := ParseMetafile(res.Metafile); err == nil {
		out.Metafile = mf
	}
	return out, nil
}

func (b *Bundler) writeWrapper(name, source string) (string, error) {
	if err := os.MkdirAll(b.CacheDir, 0o755); err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create cache directory")
	}
	path := filepath.Join(b.CacheDir, hydrate.WrapperFile(name))
	tmp, err := os.CreateTemp(b.CacheDir, "."+name+"-*.tmp")
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write island wrapper")
	}
	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write island wrapper")
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write island wrapper")
	}
	return path, nil
}

// CleanupStaleWrappers deletes cached wrappers of islands no longer in reg.
func (b *Bundler) CleanupStaleWrappers(reg *registry.Registry) ([]string, error) {
	entries, err := os.ReadDir(b.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read cache directory")
	}
	var removed []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), hydrate.WrapperSuffix)
		if !ok || e.IsDir() || reg.Has(name) {
			continue
		}
		if err := os.Remove(filepath.Join(b.CacheDir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to remove stale wrapper")
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// BuildAll bundles every island into outDir/islands. A failed island is
// logged and recorded in the report; the rest still build.
func (b *Bundler) BuildAll(ctx context.Context, reg *registry.Registry, externals []string, outDir string) (*Report, error) {
	op := logging.StartOperation(b.logger, "bundle islands")
	report := &Report{Errors: errors.NewErrorCollector()}

	removed, err := b.CleanupStaleWrappers(reg)
	if err != nil {
		b.logger.Warn(ctx, err, "Stale wrapper cleanup failed")
	}
	report.Removed = removed
	for _, name := range removed {
		b.logger.Info(ctx, "Removed stale island wrapper", "island", name)
	}

	dir := filepath.Join(outDir, IslandsDir)
	if reg.Len() > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create islands directory")
		}
	}

	for _, def := range reg.All() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		out, err := b.Bundle(ctx, def, externals, TargetStatic)
		if err == nil {
			err = out.WriteTo(dir)
		}
		if err != nil {
			b.logger.Error(ctx, err, "Failed to bundle island", "island", def.Name)
			report.Failed = append(report.Failed, def.Name)
			report.Errors.AddUnit("islands", def.Name, err)
			continue
		}
		b.logger.Info(ctx, "Bundled island", "island", def.Name, "bytes", out.Metafile.OutputBytes())
		report.Built = append(report.Built, def.Name)
	}

	op.End(ctx, "built", len(report.Built), "failed", len(report.Failed))
	return report, nil
}

// WriteTo writes name.js and, when present, name.css into dir.
func (o *Output) WriteTo(dir string) error {
	if err := os.WriteFile(filepath.Join(dir, o.Name+".js"), o.JS, 0o644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write island script").WithUnit(o.Name)
	}
	if len(o.CSS) > 0 {
		if err := os.WriteFile(filepath.Join(dir, o.Name+".css"), o.CSS, 0o644); err != nil {
			return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write island styles").WithUnit(o.Name)
		}
	}
	return nil
}

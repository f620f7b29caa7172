// Package build produces the static output tree of a site. The sequence
// is not transactional: a failure partway through leaves whatever was
// already written in the output directory.
package build

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/conneroisu/isle/internal/bundler"
	"github.com/conneroisu/isle/internal/config"
	"github.com/conneroisu/isle/internal/content"
	"github.com/conneroisu/isle/internal/deps"
	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/metrics"
	"github.com/conneroisu/isle/internal/registry"
	"github.com/conneroisu/isle/internal/styles"
)

// StylesheetFile is the combined style output.
const StylesheetFile = "styles.css"

// Builder runs a full static build.
type Builder struct {
	cfg      *config.Config
	islands  *registry.Registry
	styles   *styles.Compiler
	bundler  *bundler.Bundler
	pipeline *content.Pipeline

	logger  logging.Logger
	metrics metrics.Recorder

	// Now stamps the feed; tests pin it.
	Now func() time.Time
}

// Report summarizes a build.
type Report struct {
	Pages     []string
	Documents []string
	Assets    int
	Islands   *bundler.Report
	Styles    *styles.Result
	Feed      string
	Duration  time.Duration
}

// New creates a builder for cfg.
func New(cfg *config.Config, islands *registry.Registry, logger logging.Logger, rec metrics.Recorder) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rec = metrics.OrNoop(rec)
	return &Builder{
		cfg:      cfg,
		islands:  islands,
		styles:   styles.NewCompiler(cfg.Paths.Src, cfg.Paths.Styles, cfg.Paths.StyleModuleCache(), logger, rec),
		bundler:  bundler.New(cfg.Paths.Src, cfg.Paths.Cache, logger, rec),
		pipeline: content.NewPipeline(cfg, islands, logger, rec),
		logger:   logger.WithComponent("build"),
		metrics:  rec,
		Now:      time.Now,
	}
}

// Build cleans the output directory and writes the whole site into it.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	report, err := b.build(ctx)
	outcome := metrics.ResultSuccess
	if err != nil {
		outcome = metrics.ResultFailed
	}
	b.metrics.ObserveBuildDuration(time.Since(start), outcome)
	if report != nil {
		report.Duration = time.Since(start)
	}
	return report, err
}

func (b *Builder) build(ctx context.Context) (*Report, error) {
	out := b.cfg.Paths.Output
	op := logging.StartOperation(b.logger, "build site")
	report := &Report{}

	b.logger.Info(ctx, "Cleaning output directory", "dir", out)
	if err := os.RemoveAll(out); err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to clean output directory").WithFile(out)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create output directory").WithFile(out)
	}

	b.logger.Info(ctx, "Copying public assets", "dir", b.cfg.Paths.Public)
	copied, err := CopyDir(b.cfg.Paths.Public, out)
	if err != nil {
		return report, err
	}
	report.Assets = copied

	b.logger.Info(ctx, "Compiling styles")
	res, css, err := b.stylesheet(ctx)
	if err != nil {
		return report, err
	}
	report.Styles = res
	if err := WriteFile(filepath.Join(out, StylesheetFile), []byte(css)); err != nil {
		return report, err
	}

	plan, err := deps.NewPlan(ctx, b.cfg.Paths.Src, b.cfg.Paths.Manifest, b.islands, b.logger)
	if err != nil {
		return report, err
	}

	b.logger.Info(ctx, "Bundling islands", "count", b.islands.Len())
	islands, err := b.bundler.BuildAll(ctx, b.islands, plan.Externals, out)
	if err != nil {
		return report, err
	}
	report.Islands = islands

	docs, err := b.pipeline.Documents(ctx)
	if err != nil {
		return report, err
	}
	pages, err := b.pipeline.Pages()
	if err != nil {
		return report, err
	}
	assembler := &content.Assembler{
		URLs:      b.pipeline.URLs,
		ImportMap: plan.ImportMapTag,
		Islands:   b.islands,
		Logger:    b.logger,
	}

	b.logger.Info(ctx, "Rendering pages", "count", len(pages.Names()))
	for _, page := range pages.All() {
		html, _, err := b.pipeline.RenderHTML(ctx, assembler, "page", b.pipeline.RenderPage(page, docs))
		if err != nil {
			return report, errors.WrapBuild(err, errors.ErrCodePageRender, "failed to render page", page.Name)
		}
		if err := WriteFile(filepath.Join(out, filepath.FromSlash(page.OutputPath)), []byte(html)); err != nil {
			return report, err
		}
		b.logger.Debug(ctx, "Built page", "page", page.Name, "route", page.Route)
		report.Pages = append(report.Pages, page.Name)
	}

	b.logger.Info(ctx, "Rendering documents", "count", len(docs))
	written := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if written[doc.Slug] {
			b.logger.Warn(ctx, nil, "Skipping document with duplicate slug", "slug", doc.Slug, "file", doc.SourcePath)
			continue
		}
		written[doc.Slug] = true

		n, err := b.writeDocument(ctx, assembler, pages, doc)
		if err != nil {
			return report, err
		}
		report.Assets += n
		report.Documents = append(report.Documents, doc.Slug)
	}

	feedPath := filepath.Join(out, filepath.FromSlash(b.cfg.Feed.Path))
	feed, err := NewFeed(b.cfg, b.pipeline.URLs, docs, b.Now())
	if err != nil {
		return report, err
	}
	if err := WriteFile(feedPath, feed); err != nil {
		return report, err
	}
	report.Feed = feedPath

	op.End(ctx, "pages", len(report.Pages), "documents", len(report.Documents),
		"islands", len(islands.Built), "failed_islands", len(islands.Failed))
	return report, nil
}

func (b *Builder) stylesheet(ctx context.Context) (*styles.Result, string, error) {
	res, err := b.styles.Compile(ctx, true)
	if err != nil {
		return nil, "", err
	}
	css, err := b.styles.Combine(res)
	if err != nil {
		return nil, "", err
	}
	return res, css, nil
}

func (b *Builder) writeDocument(ctx context.Context, a *content.Assembler, pages *content.Pages, doc content.Document) (int, error) {
	c, err := b.pipeline.RenderDocument(ctx, pages, doc)
	if err != nil {
		return 0, err
	}
	html, _, err := b.pipeline.RenderHTML(ctx, a, "document", c)
	if err != nil {
		return 0, errors.WrapBuild(err, errors.ErrCodePageRender, "failed to render document", doc.Slug)
	}
	out := b.cfg.Paths.Output
	if err := WriteFile(filepath.Join(out, filepath.FromSlash(content.DocumentOutputPath(doc.Slug))), []byte(html)); err != nil {
		return 0, err
	}

	assets, err := b.pipeline.Store.Assets(doc)
	if err != nil {
		return 0, err
	}
	for _, src := range assets {
		if err := CopyFile(src, filepath.Join(out, doc.Slug, filepath.Base(src))); err != nil {
			return 0, err
		}
	}
	b.logger.Debug(ctx, "Built document", "slug", doc.Slug, "assets", len(assets))
	return len(assets), nil
}

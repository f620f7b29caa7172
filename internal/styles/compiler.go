// Package styles compiles scoped style modules (*.module.css) and keeps the
// logical to generated class-name mapping in a cache file that page
// templates read through ClassName.
package styles

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/metrics"
)

// ModuleSuffix marks a style file as scoped.
const ModuleSuffix = ".module.css"

// GlobalStylesheet is prepended to the combined output when present.
const GlobalStylesheet = "global.css"

// Compiler compiles every style module below SrcDir in isolation.
type Compiler struct {
	SrcDir    string
	StylesDir string
	CachePath string

	logger  logging.Logger
	metrics metrics.Recorder

	// serializes passes so concurrent dev requests never interleave cache writes
	mu sync.Mutex
}

// Result is the outcome of one compile pass.
type Result struct {
	// CSS is the generated style text of every module, newline-joined.
	CSS     string
	Mapping Mapping
	// Skipped lists modules that produced no mapping.
	Skipped []string
}

// NewCompiler creates a compiler writing its mapping to cachePath.
func NewCompiler(srcDir, stylesDir, cachePath string, logger logging.Logger, rec metrics.Recorder) *Compiler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Compiler{
		SrcDir:    srcDir,
		StylesDir: stylesDir,
		CachePath: cachePath,
		logger:    logger.WithComponent("styles"),
		metrics:   metrics.OrNoop(rec),
	}
}

// Discover returns the style modules below the source directory, sorted and
// relative to it with forward slashes.
func (c *Compiler) Discover() ([]string, error) {
	var files []string
	err := filepath.WalkDir(c.SrcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == c.SrcDir && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != c.SrcDir && (name == "node_modules" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ModuleSuffix) {
			rel, err := filepath.Rel(c.SrcDir, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to scan for style modules")
	}
	sort.Strings(files)
	return files, nil
}

// Compile runs a full pass over every module and overwrites the mapping
// cache. A module that fails to compile or whose mapping cannot be parsed
// is skipped and reported in Result.Skipped.
func (c *Compiler) Compile(ctx context.Context, minify bool) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := logging.StartOperation(c.logger, "compile styles")
	start := time.Now()

	files, err := c.Discover()
	if err != nil {
		op.EndWithError(ctx, err)
		return nil, err
	}

	result := &Result{Mapping: make(Mapping, len(files))}
	var css strings.Builder

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			op.EndWithError(ctx, err)
			return nil, err
		}
		text, mapping, err := c.compileModule(rel, minify)
		if err != nil {
			c.logger.Warn(ctx, err, "Skipping style module", "file", rel)
			c.metrics.IncStyleResult(metrics.ResultFailed)
			result.Skipped = append(result.Skipped, rel)
			continue
		}
		if text != "" {
			css.WriteString(text)
			css.WriteString("\n")
		}
		if mapping == nil {
			c.logger.Warn(ctx, nil, "No class mapping found in compiled module", "file", rel)
			c.metrics.IncStyleResult(metrics.ResultSkipped)
			result.Skipped = append(result.Skipped, rel)
			continue
		}
		result.Mapping[rel] = mapping
		c.metrics.IncStyleResult(metrics.ResultSuccess)
	}
	result.CSS = css.String()

	if err := c.writeCache(result.Mapping); err != nil {
		op.EndWithError(ctx, err)
		return nil, err
	}

	c.metrics.ObserveStyleCompile(time.Since(start), len(files))
	op.End(ctx, "files", len(files), "skipped", len(result.Skipped))
	return result, nil
}

// Stylesheet compiles every module and returns the global stylesheet
// followed by the module output, as served at /styles.css.
func (c *Compiler) Stylesheet(ctx context.Context, minify bool) (string, error) {
	res, err := c.Compile(ctx, minify)
	if err != nil {
		return "", err
	}
	return c.Combine(res)
}

// Combine prepends the global stylesheet, when present, to the module
// output of res.
func (c *Compiler) Combine(res *Result) (string, error) {
	global, err := os.ReadFile(filepath.Join(c.StylesDir, GlobalStylesheet))
	if err != nil {
		if os.IsNotExist(err) {
			return res.CSS, nil
		}
		return "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read global stylesheet")
	}
	return string(global) + "\n" + res.CSS, nil
}

func (c *Compiler) compileModule(rel string, minify bool) (string, map[string]string, error) {
	wrapper := fmt.Sprintf("import styles from %q; export { styles };", "./"+rel)

	res := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   wrapper,
			ResolveDir: c.SrcDir,
			Sourcefile: "css-extract.js",
			Loader:     api.LoaderJS,
		},
		Bundle:            true,
		Write:             false,
		Outdir:            "out",
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		Loader: map[string]api.Loader{
			ModuleSuffix: api.LoaderLocalCSS,
		},
		LogLevel: api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return "", nil, errors.NewBuildError(errors.ErrCodeStyleCompile, "style module failed to compile",
			fmt.Errorf("%s", formatMessages(res.Errors))).WithUnit(rel)
	}

	var text string
	var mapping map[string]string
	for _, out := range res.OutputFiles {
		switch filepath.Ext(out.Path) {
		case ".css":
			text = strings.TrimRight(string(out.Contents), "\n")
		case ".js":
			m, err := ParseMapping(out.Contents)
			if err == nil {
				mapping = m
			}
		}
	}
	return text, mapping, nil
}

func (c *Compiler) writeCache(m Mapping) error {
	if err := os.MkdirAll(filepath.Dir(c.CachePath), 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create cache directory")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to encode style mapping")
	}
	tmp := c.CachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write style mapping")
	}
	if err := os.Rename(tmp, c.CachePath); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to replace style mapping")
	}
	return nil
}

func formatMessages(msgs []api.Message) string {
	lines := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

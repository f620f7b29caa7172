package bundler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/isle/internal/deps"
	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/registry"
)

const counterSource = `import { useState } from 'react'
import s from './counter.module.css'

export default function Counter() {
  const [count, setCount] = useState(0)
  return <button className={s.button} onClick={() => setCount(count + 1)}>{count}</button>
}
`

type fixture struct {
	src, cache, out string
	bundler         *Bundler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		src:   filepath.Join(root, "src"),
		cache: filepath.Join(root, ".cache"),
		out:   filepath.Join(root, "dist"),
	}
	f.bundler = New(f.src, f.cache, nil, nil)
	f.write(t, "components/counter.tsx", counterSource)
	f.write(t, "components/counter.module.css", ".button { color: tomato; }\n")
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(f.src, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestBundleDev(t *testing.T) {
	f := newFixture(t)
	def := registry.Definition{Name: "counter", SourcePath: "components/counter.tsx"}

	out, err := f.bundler.Bundle(context.Background(), def, deps.ExternalModuleNames(nil), TargetDev)
	require.NoError(t, err)

	js := string(out.JS)
	assert.Contains(t, js, "react-dom/client")
	assert.Contains(t, js, "react/jsx-dev-runtime")
	assert.Contains(t, js, "data-island=")
	assert.Contains(t, js, "counter")
	assert.NotContains(t, js, "function useState", "react must stay external")
	assert.Contains(t, string(out.CSS), "tomato")

	require.NotNil(t, out.Metafile)
	assert.Contains(t, out.Metafile.ExternalImports(), "react-dom/client")
	assert.Greater(t, out.Metafile.OutputBytes(), 0)

	_, err = os.Stat(filepath.Join(f.cache, "counter-wrapper.tsx"))
	assert.NoError(t, err, "wrapper is kept in the cache directory")
	_, err = os.Stat(filepath.Join(f.out, "islands"))
	assert.True(t, os.IsNotExist(err), "dev bundles are never persisted to the output tree")
}

func TestBundleStaticIsMinified(t *testing.T) {
	f := newFixture(t)
	def := registry.Definition{Name: "counter", SourcePath: "components/counter.tsx"}
	externals := deps.ExternalModuleNames(nil)

	dev, err := f.bundler.Bundle(context.Background(), def, externals, TargetDev)
	require.NoError(t, err)
	static, err := f.bundler.Bundle(context.Background(), def, externals, TargetStatic)
	require.NoError(t, err)

	assert.Less(t, len(static.JS), len(dev.JS))
	assert.Contains(t, string(static.JS), "react/jsx-runtime")
	assert.NotContains(t, string(static.JS), "jsx-dev-runtime")
}

func TestBundleNamedExport(t *testing.T) {
	f := newFixture(t)
	f.write(t, "components/charts.tsx", "export function LineChart() { return <svg /> }\n")

	out, err := f.bundler.Bundle(context.Background(),
		registry.Definition{Name: "chart", SourcePath: "components/charts.tsx", ExportName: "LineChart"},
		deps.ExternalModuleNames(nil), TargetDev)
	require.NoError(t, err)
	assert.Contains(t, string(out.JS), "LineChart")
	assert.Empty(t, out.CSS)
}

func TestBundleFailureIsRecoverable(t *testing.T) {
	f := newFixture(t)
	f.write(t, "components/broken.tsx", "export default function Broken( { return <div> }\n")

	_, err := f.bundler.Bundle(context.Background(),
		registry.Definition{Name: "broken", SourcePath: "components/broken.tsx"},
		deps.ExternalModuleNames(nil), TargetStatic)
	require.Error(t, err)
	assert.True(t, errors.IsRecoverable(err))
	assert.False(t, errors.IsFatal(err))
}

func TestBuildAll(t *testing.T) {
	f := newFixture(t)
	f.write(t, "components/broken.tsx", "export default function Broken( {\n")
	reg := registry.MustNew(map[string]string{
		"counter": "components/counter.tsx",
		"broken":  "components/broken.tsx",
	})

	// a wrapper left behind by an island that was since removed
	require.NoError(t, os.MkdirAll(f.cache, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.cache, "old-wrapper.tsx"), []byte("x"), 0o644))

	report, err := f.bundler.BuildAll(context.Background(), reg, deps.ExternalModuleNames(nil), f.out)
	require.NoError(t, err)

	assert.Equal(t, []string{"counter"}, report.Built)
	assert.Equal(t, []string{"broken"}, report.Failed)
	assert.Equal(t, []string{"old"}, report.Removed)
	assert.True(t, report.Errors.HasErrors())

	js, err := os.ReadFile(filepath.Join(f.out, "islands", "counter.js"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(js), "react-dom/client"))
	_, err = os.Stat(filepath.Join(f.out, "islands", "counter.css"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.out, "islands", "broken.js"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(f.cache, "old-wrapper.tsx"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(f.cache, "counter-wrapper.tsx"))
	assert.NoError(t, err)
}

func TestCleanupWithoutCacheDir(t *testing.T) {
	b := New(t.TempDir(), filepath.Join(t.TempDir(), "missing"), nil, nil)
	removed, err := b.CleanupStaleWrappers(registry.MustNew(nil))
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestParseMetafile(t *testing.T) {
	mf, err := ParseMetafile(`{
  "inputs": {"src/a.tsx": {"bytes": 10, "imports": [{"path": "react", "kind": "import-statement", "external": true}]}},
  "outputs": {
    "out/a.js": {"bytes": 120, "inputs": {}, "imports": [{"path": "react", "kind": "import-statement", "external": true}, {"path": "react-dom/client", "kind": "import-statement", "external": true}], "exports": []},
    "out/a.css": {"bytes": 30, "inputs": {}, "imports": [], "exports": []}
  }
}`)
	require.NoError(t, err)
	assert.Equal(t, 150, mf.OutputBytes())
	assert.Equal(t, []string{"react", "react-dom/client"}, mf.ExternalImports())

	empty, err := ParseMetafile("")
	require.NoError(t, err)
	assert.Nil(t, empty)
	assert.Zero(t, empty.OutputBytes())
}

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/isle/internal/errors"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

// execute runs the root command with args against a fresh global viper.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "isle ")

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	_, err = execute(t, "version", "--format", "yaml")
	assert.Error(t, err)
	versionFormat = "text"
}

func TestReadConfigPriority(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "site.yml")
	writeFile(t, file, "site:\n  name: From File\nserver:\n  port: 4000\n")

	t.Setenv("ISLE_CONFIG_FILE", file)
	t.Setenv("ISLE_SERVER_PORT", "4500")

	v := viper.New()
	require.NoError(t, readConfig(v, ""))
	assert.Equal(t, "From File", v.GetString("site.name"))
	assert.Equal(t, 4500, v.GetInt("server.port"), "environment overrides the file")
}

func TestReadConfigMissingExplicitFileIsFatal(t *testing.T) {
	err := readConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestReadConfigWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	assert.NoError(t, readConfig(viper.New(), ""))
}

func TestStandardFlagsApply(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := AddStandardFlags(cmd, "server", "build")
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9000", "--output", "public_html"}))

	v := viper.New()
	v.Set("server.host", "example.test")
	flags.Apply(cmd, v)

	assert.Equal(t, 9000, v.GetInt("server.port"))
	assert.Equal(t, "public_html", v.GetString("paths.output"))
	assert.Equal(t, "example.test", v.GetString("server.host"), "unset flags leave config alone")
	assert.False(t, v.IsSet("paths.root"))

	assert.Equal(t, []string{"--port", "9000"}, flags.ChildArgs(cmd))
}

func TestBuildCommand(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "isle.yml"), "site:\n  name: Tiny\n  url: https://tiny.example\n")
	writeFile(t, filepath.Join(root, "src/layouts/base.html"),
		`{{define "base"}}<html><head></head><body>{{block "content" .}}{{end}}</body></html>{{end}}`)
	writeFile(t, filepath.Join(root, "src/pages/index.html"),
		`{{template "base" .}}{{define "content"}}{{range .Posts}}<p>{{.Title}}</p>{{end}}{{end}}`)
	writeFile(t, filepath.Join(root, "src/pages/post.html"),
		`{{template "base" .}}{{define "content"}}{{render .Content}}{{end}}`)
	writeFile(t, filepath.Join(root, "src/posts/first.md"), "---\ntitle: First\npublishedAt: 2024-03-01\n---\nHello.\n")

	out, err := execute(t, "build", "--config", filepath.Join(root, "isle.yml"), "--root", root, "--output", "site")
	require.NoError(t, err)
	assert.Contains(t, out, "Built 1 pages, 1 documents and 0 islands")

	index, err := os.ReadFile(filepath.Join(root, "site", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<p>First</p>")
	assert.FileExists(t, filepath.Join(root, "site", "first", "index.html"))
	assert.FileExists(t, filepath.Join(root, "site", "rss.xml"))
	assert.FileExists(t, filepath.Join(root, "site", "styles.css"))
}

func TestBuildCommandRejectsInvalidIsland(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "isle.yml")
	writeFile(t, file, "islands:\n  counter: ../outside.tsx\n")

	_, err := execute(t, "build", "--config", file, "--root", root)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

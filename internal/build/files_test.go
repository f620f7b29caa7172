package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "public")
	dst := t.TempDir()
	require.NoError(t, WriteFile(filepath.Join(src, "a.txt"), []byte("a")))
	require.NoError(t, WriteFile(filepath.Join(src, "nested", "b.txt"), []byte("b")))

	n, err := CopyDir(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dst, "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestCopyDirMissingSource(t *testing.T) {
	n, err := CopyDir(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = CopyDir("", t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCopyFileMissing(t *testing.T) {
	err := CopyFile(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "out"))
	assert.Error(t, err)
}

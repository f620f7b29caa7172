package build

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/conneroisu/isle/internal/errors"
)

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create directory").WithFile(path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write file").WithFile(path)
	}
	return nil
}

// CopyFile copies src to dst, creating parent directories.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to open file").WithFile(src)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create directory").WithFile(dst)
	}
	out, err := os.Create(dst)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to create file").WithFile(dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to copy file").WithFile(dst)
	}
	if err := out.Close(); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to close file").WithFile(dst)
	}
	return nil
}

// CopyDir copies the tree below src into dst verbatim and returns the number
// of files copied. A missing src copies nothing.
func CopyDir(src, dst string) (int, error) {
	if src == "" {
		return 0, nil
	}
	n := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == src && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := CopyFile(path, target); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to copy public assets").WithFile(src)
	}
	return n, nil
}

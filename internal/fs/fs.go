package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotRegular is returned when the patch target is a directory or device.
var ErrNotRegular = errors.New("not a regular file")

// ReadSource reads the file to be patched. Any failure here aborts the run
// before anything is written.
func ReadSource(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("read source %s: %w", path, ErrNotRegular)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(content), nil
}

// Resolve returns an absolute, cleaned form of path, falling back to path
// itself when the working directory is unavailable.
func Resolve(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// writeAtomic replaces path with content via a temp file in the same
// directory, so readers never observe a half-written file.
func writeAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

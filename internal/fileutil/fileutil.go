// Package fileutil writes files so readers never observe a partial result.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteWith creates dest's parent directory, lets fn fill a temporary
// sibling file, and renames it over dest. On any failure the temporary is
// removed and dest is left untouched.
func WriteWith(dest string, fn func(*os.File) error) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

// WriteAtomic streams src into dest and returns the bytes written.
func WriteAtomic(dest string, src io.Reader) (int64, error) {
	var written int64
	err := WriteWith(dest, func(f *os.File) error {
		n, err := io.Copy(f, src)
		written = n
		return err
	})
	return written, err
}

// WriteFileAtomic replaces dest with data.
func WriteFileAtomic(dest string, data []byte) error {
	return WriteWith(dest, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileMode is applied to every saved output.
const FileMode os.FileMode = 0o644

// Storage writes processed outputs to the local filesystem.
// A file becomes visible under its final name only once it is fully written.
type Storage struct{}

// NewStorage creates a new Storage instance.
func NewStorage() *Storage {
	return &Storage{}
}

// Save stores src as dir/filename and returns the full path.
func (s *Storage) Save(dir, filename string, src io.Reader) (string, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	dstPath := filepath.Join(dir, filename)

	tmp, err := os.CreateTemp(dir, "."+filename+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dstPath, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}
	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	return dstPath, nil
}

// Exists reports whether dir/filename is already present.
func (s *Storage) Exists(dir, filename string) bool {
	_, err := os.Stat(filepath.Join(dir, filename))
	return err == nil
}

// Delete removes dir/filename.
func (s *Storage) Delete(dir, filename string) error {
	return os.Remove(filepath.Join(dir, filename))
}

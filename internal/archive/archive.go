// Package archive moves processed originals out of the intake folder.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// ErrArchiveMove marks an original that could not be moved. The processed
// outputs remain valid when this happens.
var ErrArchiveMove = errors.New("failed to move original")

// Move relocates src into dir under its base name and returns the destination.
// It is a no-op when src already is the destination.
func Move(src, dir string) (string, error) {
	dst := filepath.Join(dir, filepath.Base(src))

	absSrc, err := filepath.Abs(src)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrArchiveMove, err)
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrArchiveMove, err)
	}
	if absSrc == absDst {
		return dst, nil
	}

	err = os.Rename(absSrc, absDst)
	if err == nil {
		return dst, nil
	}

	// Renames across filesystems fail; fall back to copy and delete.
	if !errors.Is(err, syscall.EXDEV) {
		return "", fmt.Errorf("%w: %w", ErrArchiveMove, err)
	}
	if err := copyFile(absSrc, absDst); err != nil {
		return "", fmt.Errorf("%w: %w", ErrArchiveMove, err)
	}
	if err := os.Remove(absSrc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrArchiveMove, err)
	}

	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}

	return out.Close()
}

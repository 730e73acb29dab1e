// Package manifest writes the per-run CSV used for bulk storefront uploads.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliskhannn/catalog-studio/internal/model"
)

const (
	// TagSeparator joins tags into the single tags column.
	TagSeparator = "|"

	timestampLayout = "20060102-150405"
)

// Header returns the manifest header row.
func Header(withPNG bool) []string {
	h := []string{"original_name", "new_filename", "alt_text", "tags"}
	if withPNG {
		h = append(h, "transparent_png")
	}
	return h
}

// FileName returns the manifest file name for a run started at t.
func FileName(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = "manifest"
	}
	return fmt.Sprintf("%s_%s.csv", prefix, t.Format(timestampLayout))
}

// Writer appends records to an open manifest file. Every row is flushed to
// disk as soon as it is written.
type Writer struct {
	path    string
	f       *os.File
	w       *csv.Writer
	withPNG bool
	rows    int
}

// Create opens dir/name and writes the header row.
func Create(dir, name string, withPNG bool) (*Writer, error) {
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create manifest %s: %w", path, err)
	}

	mw := &Writer{path: path, f: f, w: csv.NewWriter(f), withPNG: withPNG}
	if err := mw.write(Header(withPNG)); err != nil {
		f.Close()
		return nil, err
	}

	return mw, nil
}

// Path returns the manifest's location on disk.
func (m *Writer) Path() string {
	return m.path
}

// Rows returns the number of data rows written so far.
func (m *Writer) Rows() int {
	return m.rows
}

// Write appends one data row for rec.
func (m *Writer) Write(rec model.ProcessRecord) error {
	row := []string{rec.Original, rec.Filename(), rec.AltText, strings.Join(rec.Tags, TagSeparator)}
	if m.withPNG {
		row = append(row, rec.PNG)
	}

	if err := m.write(row); err != nil {
		return err
	}
	m.rows++

	return nil
}

// Close flushes pending rows and closes the file.
func (m *Writer) Close() error {
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		m.f.Close()
		return fmt.Errorf("flush manifest: %w", err)
	}

	if err := m.f.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}

	return nil
}

func (m *Writer) write(row []string) error {
	if err := m.w.Write(row); err != nil {
		return fmt.Errorf("write manifest row: %w", err)
	}

	m.w.Flush()
	if err := m.w.Error(); err != nil {
		return fmt.Errorf("flush manifest: %w", err)
	}

	return nil
}

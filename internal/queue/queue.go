// Package queue holds the pending inputs of a batch and runs them through the
// single-item processor.
package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extensions lists the input file types accepted by Enqueue.
var Extensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

// Queue is an ordered, duplicate-free list of input paths keyed by absolute path.
type Queue struct {
	paths []string
	seen  map[string]struct{}
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{seen: make(map[string]struct{})}
}

// Enqueue adds image files to the queue. Directories are expanded one level
// deep. Files with unsupported extensions and paths already queued are skipped.
// It returns the number of paths added.
func (q *Queue) Enqueue(paths ...string) (int, error) {
	added := 0

	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}

		info, err := os.Stat(p)
		if err == nil && info.IsDir() {
			entries, err := os.ReadDir(p)
			if err != nil {
				return added, fmt.Errorf("read directory %s: %w", p, err)
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				if q.add(filepath.Join(p, e.Name())) {
					added++
				}
			}
			continue
		}

		if q.add(p) {
			added++
		}
	}

	return added, nil
}

func (q *Queue) add(path string) bool {
	if _, ok := Extensions[strings.ToLower(filepath.Ext(path))]; !ok {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if _, ok := q.seen[abs]; ok {
		return false
	}

	q.seen[abs] = struct{}{}
	q.paths = append(q.paths, abs)

	return true
}

// Paths returns a copy of the queued paths in insertion order.
func (q *Queue) Paths() []string {
	out := make([]string, len(q.paths))
	copy(out, q.paths)
	return out
}

// Len returns the number of queued paths.
func (q *Queue) Len() int {
	return len(q.paths)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.paths = nil
	q.seen = make(map[string]struct{})
}

// Package bgremoval adapts an external background-removal tool to the image pipeline.
package bgremoval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// Remover turns a subject image into the same subject on a transparent background.
type Remover interface {
	Remove(ctx context.Context, img image.Image) (*image.NRGBA, error)
}

// Argument placeholders substituted in Command.Args.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// Command runs a CLI such as `rembg i <input> <output>` on a temporary PNG.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

// Detect resolves name on PATH and returns a Command remover, or nil when the
// tool is not installed. Availability is decided once, here.
func Detect(name string, args []string, timeout time.Duration) *Command {
	if strings.TrimSpace(name) == "" {
		return nil
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return nil
	}

	if len(args) == 0 {
		args = []string{"i", InputPlaceholder, OutputPlaceholder}
	}

	return &Command{Path: path, Args: args, Timeout: timeout}
}

// Remove writes img to a temp dir, runs the tool and decodes its output.
func (c *Command) Remove(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	dir, err := os.MkdirTemp("", "bgremoval-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.png")
	out := filepath.Join(dir, "output.png")

	if err := imaging.Save(img, in); err != nil {
		return nil, fmt.Errorf("write remover input: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		a = strings.ReplaceAll(a, InputPlaceholder, in)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, out)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("run %s: %w: %s", filepath.Base(c.Path), err, msg)
		}
		return nil, fmt.Errorf("run %s: %w", filepath.Base(c.Path), err)
	}

	res, err := imaging.Open(out)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s produced no output", filepath.Base(c.Path))
		}
		return nil, fmt.Errorf("decode remover output: %w", err)
	}

	return imaging.Clone(res), nil
}

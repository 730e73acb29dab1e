package bgremoval

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDetect_Missing(t *testing.T) {
	if c := Detect("definitely-not-a-real-remover-binary", nil, 0); c != nil {
		t.Fatalf("expected nil remover, got %+v", c)
	}
	if c := Detect("", nil, 0); c != nil {
		t.Fatalf("expected nil remover for empty name, got %+v", c)
	}
}

func TestCommand_Remove(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}

	// A stand-in tool that copies its input to its output.
	script := filepath.Join(t.TempDir(), "fake-rembg")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncp \"$2\" \"$3\"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	c := &Command{Path: script, Args: []string{"i", InputPlaceholder, OutputPlaceholder}}

	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.SetNRGBA(1, 1, color.NRGBA{10, 20, 30, 255})

	out, err := c.Remove(context.Background(), src)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if out.Bounds().Size() != image.Pt(4, 3) {
		t.Fatalf("unexpected size %v", out.Bounds().Size())
	}
	if got := out.NRGBAAt(1, 1); got != (color.NRGBA{10, 20, 30, 255}) {
		t.Fatalf("unexpected pixel %v", got)
	}
}

func TestCommand_RemoveFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}

	script := filepath.Join(t.TempDir(), "broken-rembg")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho boom >&2\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	c := &Command{Path: script, Args: []string{"i", InputPlaceholder, OutputPlaceholder}}
	if _, err := c.Remove(context.Background(), image.NewNRGBA(image.Rect(0, 0, 2, 2))); err == nil {
		t.Fatal("expected error from failing tool")
	}
}

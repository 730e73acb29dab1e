package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidConfig is returned when a ProcessingConfig fails validation.
var ErrInvalidConfig = errors.New("invalid processing config")

// Known template placeholders.
const (
	PlaceholderProduct   = "{product}"
	PlaceholderColors    = "{colors}"
	PlaceholderTimestamp = "{timestamp}"
)

var (
	placeholderRe = regexp.MustCompile(`\{[^{}]*\}`)
	alnumRe       = regexp.MustCompile(`[a-z0-9]`)

	// layoutSample is formatted with TimestampLayout during validation.
	layoutSample = time.Date(2025, time.October, 30, 12, 54, 7, 0, time.UTC)
)

// ProcessingConfig holds the immutable per-run settings of a batch.
// It is built once before a run and never changed while the run is in progress.
type ProcessingConfig struct {
	Width  int // canvas width in pixels
	Height int // canvas height in pixels
	Margin int // blank border kept around the subject

	Shadow bool

	Watermark        bool
	WatermarkPath    string  // optional; empty disables the watermark step
	WatermarkOpacity float64 // [0,1]
	WatermarkScale   float64 // (0,1], fraction of canvas width

	RemoveBackground bool
	ExportJPG        bool
	ExportPNG        bool
	JPEGQuality      int

	ProductType string

	Heuristic       bool     // heuristic SEO naming instead of the template
	Template        string   // used when Heuristic is false
	TimestampLayout string   // Go time layout for the {timestamp} component
	Keywords        []string // brand keywords for heuristic naming
	UniqueSuffix    bool     // append -2, -3, ... when a name is already taken

	BaseTags []string

	ArchiveDir    string // empty means <output>/Finished_Originals
	MoveOriginals bool
}

// WritesPNG reports whether the transparent variant is produced for the run.
// The manifest carries the transparent_png column only in that case.
func (c ProcessingConfig) WritesPNG() bool {
	return c.RemoveBackground && c.ExportPNG
}

// Validate checks the config invariants and returns an error wrapping ErrInvalidConfig.
func (c ProcessingConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: canvas size must be positive, got %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Margin < 0 {
		return fmt.Errorf("%w: margin must not be negative, got %d", ErrInvalidConfig, c.Margin)
	}
	if 2*c.Margin >= min(c.Width, c.Height) {
		return fmt.Errorf("%w: margin %d leaves no room on a %dx%d canvas", ErrInvalidConfig, c.Margin, c.Width, c.Height)
	}
	if c.WatermarkOpacity < 0 || c.WatermarkOpacity > 1 {
		return fmt.Errorf("%w: watermark opacity must be within [0,1], got %v", ErrInvalidConfig, c.WatermarkOpacity)
	}
	if c.WatermarkScale <= 0 || c.WatermarkScale > 1 {
		return fmt.Errorf("%w: watermark scale must be within (0,1], got %v", ErrInvalidConfig, c.WatermarkScale)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality must be within [1,100], got %d", ErrInvalidConfig, c.JPEGQuality)
	}
	if strings.TrimSpace(c.ProductType) == "" {
		return fmt.Errorf("%w: product type is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.TimestampLayout) == "" {
		return fmt.Errorf("%w: timestamp layout is required", ErrInvalidConfig)
	}
	if !alnumRe.MatchString(strings.ToLower(layoutSample.Format(c.TimestampLayout))) {
		return fmt.Errorf("%w: timestamp layout %q renders no letters or digits", ErrInvalidConfig, c.TimestampLayout)
	}
	if !c.Heuristic {
		if err := validateTemplate(c.Template); err != nil {
			return err
		}
	}
	if !c.ExportJPG && !c.WritesPNG() {
		return fmt.Errorf("%w: nothing to export (enable jpg, or png together with background removal)", ErrInvalidConfig)
	}
	return nil
}

func validateTemplate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return fmt.Errorf("%w: rename template is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(tmpl, `/\`) {
		return fmt.Errorf("%w: rename template must not contain path separators", ErrInvalidConfig)
	}

	for _, p := range placeholderRe.FindAllString(tmpl, -1) {
		switch p {
		case PlaceholderProduct, PlaceholderColors, PlaceholderTimestamp:
		default:
			return fmt.Errorf("%w: unknown placeholder %s in rename template", ErrInvalidConfig, p)
		}
	}

	return nil
}

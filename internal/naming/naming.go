// Package naming builds deterministic output file names for processed images.
package naming

import (
	"strings"
	"time"

	"github.com/aliskhannn/catalog-studio/internal/model"
)

const (
	// DefaultTimestampLayout renders seconds resolution, e.g. 20251030-125400.
	DefaultTimestampLayout = "20060102-150405"

	maxKeywords = 4
)

// Input carries everything a file name is derived from.
type Input struct {
	Product   string
	Colors    []string
	Keywords  []string
	Timestamp string
}

// Template substitutes {product}, {colors} and {timestamp} into tmpl.
// The product is sanitized. Colors and the timestamp are slugged, colors
// joined with hyphens.
func Template(tmpl string, in Input) string {
	colors := make([]string, 0, len(in.Colors))
	for _, c := range in.Colors {
		if s := Slug(c); s != "" {
			colors = append(colors, s)
		}
	}

	r := strings.NewReplacer(
		model.PlaceholderProduct, SanitizeProduct(in.Product),
		model.PlaceholderColors, strings.Join(colors, "-"),
		model.PlaceholderTimestamp, Slug(in.Timestamp),
	)

	return r.Replace(tmpl)
}

// Heuristic builds an SEO-style name: keywords, product, colors, timestamp.
// Empty segments are omitted; with no other segment the timestamp alone is used.
func Heuristic(in Input) string {
	var parts []string

	seen := make(map[string]struct{}, len(in.Keywords))
	kw := 0
	for _, k := range in.Keywords {
		if kw == maxKeywords {
			break
		}
		s := Slug(k)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		parts = append(parts, s)
		kw++
	}

	if p := Slug(in.Product); p != "" {
		parts = append(parts, p)
	}
	if c := Slug(strings.Join(in.Colors, " ")); c != "" {
		parts = append(parts, c)
	}

	ts := Slug(in.Timestamp)
	if len(parts) == 0 {
		return ts
	}
	if ts != "" {
		parts = append(parts, ts)
	}

	return strings.Join(parts, "-")
}

// Namer picks the naming mode from the run config and stamps names with its clock.
type Namer struct {
	cfg model.ProcessingConfig
	now func() time.Time
}

// New returns a Namer using the local wall clock.
func New(cfg model.ProcessingConfig) *Namer {
	return &Namer{cfg: cfg, now: time.Now}
}

// WithClock overrides the clock used for timestamps.
func (n *Namer) WithClock(now func() time.Time) *Namer {
	n.now = now
	return n
}

// Build returns the base file name (no extension) for the given colors.
func (n *Namer) Build(colors []string) string {
	layout := n.cfg.TimestampLayout
	if layout == "" {
		layout = DefaultTimestampLayout
	}

	in := Input{
		Product:   n.cfg.ProductType,
		Colors:    colors,
		Keywords:  n.cfg.Keywords,
		Timestamp: n.now().Format(layout),
	}

	if n.cfg.Heuristic {
		return Heuristic(in)
	}

	return Template(n.cfg.Template, in)
}

// Package compositor places a product subject on a fixed-size canvas with an
// optional drop shadow and a soft watermark projection.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/aliskhannn/catalog-studio/internal/model"
)

// ErrWatermarkLoad marks a watermark that could not be read or scaled.
// Composition always continues without the watermark in that case.
var ErrWatermarkLoad = errors.New("watermark load failed")

const (
	shadowAlpha   = 40
	shadowBlur    = 12.0
	shadowOffset  = 0.08 // fraction of subject height the shadow is pushed down
	watermarkBlur = 1.0
	watermarkTop  = 0.10 // fraction of canvas height
)

// Options controls a single composition.
type Options struct {
	Width  int
	Height int
	Margin int

	Shadow bool

	WatermarkPath    string // empty disables the watermark
	WatermarkOpacity float64
	WatermarkScale   float64

	// Transparent requests a second canvas with only the subject on a clear background.
	Transparent bool
}

// AvailableArea returns the box a subject may occupy inside the margins.
func (o Options) AvailableArea() (int, int) {
	return o.Width - 2*o.Margin, o.Height - 2*o.Margin
}

// OptionsFor derives composition options from the run config. The transparent
// variant is only produced when the background was actually removed.
func OptionsFor(cfg model.ProcessingConfig, backgroundRemoved bool) Options {
	opts := Options{
		Width:            cfg.Width,
		Height:           cfg.Height,
		Margin:           cfg.Margin,
		Shadow:           cfg.Shadow,
		WatermarkOpacity: cfg.WatermarkOpacity,
		WatermarkScale:   cfg.WatermarkScale,
		Transparent:      backgroundRemoved && cfg.ExportPNG,
	}
	if cfg.Watermark {
		opts.WatermarkPath = cfg.WatermarkPath
	}

	return opts
}

// Result is the outcome of Compose.
type Result struct {
	Canvas      *image.NRGBA    // opaque white canvas
	Transparent *image.NRGBA    // nil unless requested
	Subject     image.Rectangle // where the fitted subject was placed
	// WatermarkErr is set when a watermark was requested but skipped.
	WatermarkErr error
}

// Compose fits subject inside the margin box without upscaling, centers it on
// a white canvas and layers shadow, subject and watermark in that order.
func Compose(subject image.Image, opts Options) Result {
	availW, availH := opts.AvailableArea()

	fitted := imaging.Fit(subject, availW, availH, imaging.Lanczos)
	sw, sh := fitted.Bounds().Dx(), fitted.Bounds().Dy()
	pos := image.Pt((opts.Width-sw)/2, (opts.Height-sh)/2)

	canvas := imaging.New(opts.Width, opts.Height, color.White)

	if opts.Shadow && sw > 0 && sh > 0 {
		canvas = drawShadow(canvas, sw, sh, pos, opts)
	}

	canvas = imaging.Overlay(canvas, fitted, pos, 1.0)

	res := Result{
		Subject: image.Rectangle{Min: pos, Max: pos.Add(image.Pt(sw, sh))},
	}

	if opts.WatermarkPath != "" {
		logo, err := loadWatermark(opts)
		if err != nil {
			res.WatermarkErr = err
		} else {
			lw := logo.Bounds().Dx()
			at := image.Pt((opts.Width-lw)/2, int(float64(opts.Height)*watermarkTop))
			canvas = imaging.Overlay(canvas, logo, at, 1.0)
		}
	}

	res.Canvas = canvas

	if opts.Transparent {
		blank := imaging.New(opts.Width, opts.Height, color.Transparent)
		res.Transparent = imaging.Paste(blank, fitted, pos)
	}

	return res
}

// drawShadow renders a blurred ellipse in the lower band of the subject's
// footprint and composites it slightly below the subject position. The shadow
// is clipped so it never reaches into the bottom margin.
func drawShadow(canvas *image.NRGBA, sw, sh int, pos image.Point, opts Options) *image.NRGBA {
	w, h := float64(sw), float64(sh)

	dc := gg.NewContext(sw, sh)
	dc.SetRGBA255(0, 0, 0, shadowAlpha)
	// Ellipse box spans x 10%..90% and y 75%..95% of the subject.
	dc.DrawEllipse(w*0.5, h*0.85, w*0.4, h*0.1)
	dc.Fill()

	shadow := imaging.Blur(dc.Image(), shadowBlur)

	at := image.Pt(pos.X, pos.Y+int(h*shadowOffset))
	limit := opts.Height - opts.Margin - at.Y
	if limit <= 0 {
		return canvas
	}
	if limit < sh {
		shadow = imaging.Crop(shadow, image.Rect(0, 0, sw, limit))
	}

	return imaging.Overlay(canvas, shadow, at, 1.0)
}

// loadWatermark reads the watermark, scales it to a fraction of the canvas
// width, multiplies its alpha by the opacity and softens its edges.
func loadWatermark(opts Options) (*image.NRGBA, error) {
	logo, err := imaging.Open(opts.WatermarkPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatermarkLoad, err)
	}

	b := logo.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image %s", ErrWatermarkLoad, opts.WatermarkPath)
	}

	tw := int(float64(opts.Width) * opts.WatermarkScale)
	th := int(float64(tw) * float64(b.Dy()) / float64(b.Dx()))
	if tw < 1 || th < 1 {
		return nil, fmt.Errorf("%w: watermark scales to %dx%d", ErrWatermarkLoad, tw, th)
	}

	scaled := imaging.Resize(logo, tw, th, imaging.Lanczos)
	for i := 3; i < len(scaled.Pix); i += 4 {
		scaled.Pix[i] = uint8(float64(scaled.Pix[i]) * opts.WatermarkOpacity)
	}

	return imaging.Blur(scaled, watermarkBlur), nil
}

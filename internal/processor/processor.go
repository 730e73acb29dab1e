package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"
	_ "golang.org/x/image/webp"

	"github.com/aliskhannn/catalog-studio/internal/compositor"
	"github.com/aliskhannn/catalog-studio/internal/model"
	"github.com/aliskhannn/catalog-studio/internal/naming"
	"github.com/aliskhannn/catalog-studio/internal/palette"
)

const colorCount = 3

var (
	// ErrImageDecode is returned when the source file cannot be opened as an image.
	ErrImageDecode = errors.New("failed to decode image")

	// ErrBackgroundRemovalUnavailable is returned when background removal is
	// enabled but no remover was detected at startup.
	ErrBackgroundRemovalUnavailable = errors.New("background removal requested but no remover is available")
)

// fileStorage defines the interface for writing processed outputs.
type fileStorage interface {
	Save(dir, filename string, src io.Reader) (string, error)
	Exists(dir, filename string) bool
	Delete(dir, filename string) error
}

// remover defines the background-removal capability.
type remover interface {
	Remove(ctx context.Context, img image.Image) (*image.NRGBA, error)
}

// Processor turns one source photo into catalog outputs and a ProcessRecord.
type Processor struct {
	cfg         model.ProcessingConfig
	fileStorage fileStorage
	remover     remover
	namer       *naming.Namer
}

// New creates a Processor for a run. r must be a nil interface when no
// background remover is available.
func New(cfg model.ProcessingConfig, fs fileStorage, r remover) *Processor {
	return &Processor{
		cfg:         cfg,
		fileStorage: fs,
		remover:     r,
		namer:       naming.New(cfg),
	}
}

// WithNamer replaces the namer, e.g. to pin the clock.
func (p *Processor) WithNamer(n *naming.Namer) *Processor {
	p.namer = n
	return p
}

// Config returns the run config the processor was built with.
func (p *Processor) Config() model.ProcessingConfig {
	return p.cfg
}

// RemoverAvailable reports whether a background remover was detected.
func (p *Processor) RemoverAvailable() bool {
	return p.remover != nil
}

// Process normalizes the image at path and writes its outputs to outputDir.
// Output files are reported in the record only once fully written.
func (p *Processor) Process(ctx context.Context, path, outputDir string) (model.ProcessRecord, error) {
	// Decode the source and normalize it to NRGBA.
	src, err := decode(path)
	if err != nil {
		return model.ProcessRecord{}, err
	}
	subject := imaging.Clone(src)

	// Remove the background when requested.
	removed := false
	if p.cfg.RemoveBackground {
		if p.remover == nil {
			return model.ProcessRecord{}, ErrBackgroundRemovalUnavailable
		}

		subject, err = p.remover.Remove(ctx, subject)
		if err != nil {
			return model.ProcessRecord{}, fmt.Errorf("failed to remove background: %w", err)
		}
		removed = true
	}

	// Classify the subject's colors.
	colors := palette.Extract(subject, colorCount)
	for _, s := range colors.Swatches {
		zlog.Logger.Debug().
			Str("file", filepath.Base(path)).
			Str("hex", s.Hex).
			Str("name", s.Name).
			Int("count", s.Count).
			Msg("palette swatch")
	}

	// Compose the canvas and, if applicable, the transparent variant.
	comp := compositor.Compose(subject, compositor.OptionsFor(p.cfg, removed))
	if comp.WatermarkErr != nil {
		zlog.Logger.Warn().
			Err(comp.WatermarkErr).
			Str("watermark", p.cfg.WatermarkPath).
			Msg("watermark skipped")
	}

	base := p.uniqueName(outputDir, p.namer.Build(colors.Names))

	rec := model.ProcessRecord{
		Original: filepath.Base(path),
		AltText:  AltText(p.cfg.ProductType, colors.Names, removed),
		Tags:     Tags(p.cfg.ProductType, p.cfg.BaseTags, colors.Names),
		Colors:   colors.Names,
	}

	// Encode and save the white-canvas JPG.
	if p.cfg.ExportJPG {
		name := base + ".jpg"
		if err := p.save(outputDir, name, comp.Canvas, imaging.JPEG, imaging.JPEGQuality(p.cfg.JPEGQuality)); err != nil {
			return model.ProcessRecord{}, err
		}
		rec.JPG = name
	}

	// Encode and save the transparent PNG.
	if comp.Transparent != nil {
		name := base + ".png"
		if err := p.save(outputDir, name, comp.Transparent, imaging.PNG); err != nil {
			// A failed item leaves no outputs behind.
			if rec.JPG != "" {
				if derr := p.fileStorage.Delete(outputDir, rec.JPG); derr != nil {
					zlog.Logger.Warn().Err(derr).Str("file", rec.JPG).Msg("failed to remove partial output")
				}
			}
			return model.ProcessRecord{}, err
		}
		rec.PNG = name
	}

	return rec, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrImageDecode, filepath.Base(path), err)
	}

	return img, nil
}

func (p *Processor) save(dir, name string, img image.Image, format imaging.Format, opts ...imaging.EncodeOption) error {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, format, opts...); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	if _, err := p.fileStorage.Save(dir, name, buf); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	return nil
}

// uniqueName appends -2, -3, ... to base while an output with that name exists.
// It is a no-op unless the run enables unique suffixes.
func (p *Processor) uniqueName(dir, base string) string {
	if !p.cfg.UniqueSuffix {
		return base
	}

	name := base
	for i := 2; p.taken(dir, name); i++ {
		name = base + "-" + strconv.Itoa(i)
	}

	return name
}

func (p *Processor) taken(dir, name string) bool {
	return p.fileStorage.Exists(dir, name+".jpg") || p.fileStorage.Exists(dir, name+".png")
}

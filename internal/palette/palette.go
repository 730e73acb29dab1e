// Package palette maps the dominant colors of an image to coarse color names.
package palette

import (
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Unknown is returned when no color could be extracted.
	Unknown = "unknown"

	sampleSize   = 64
	paletteSize  = 32
	alphaCutover = 128 // pixels below this alpha belong to a removed background
)

// Entry is a named reference color.
type Entry struct {
	Name string
	RGB  [3]uint8
}

// Basic is the reference table used for classification. Order is part of the
// contract: when two entries are equally close, the earlier one wins.
var Basic = []Entry{
	{"black", [3]uint8{0, 0, 0}},
	{"white", [3]uint8{255, 255, 255}},
	{"gray", [3]uint8{128, 128, 128}},
	{"red", [3]uint8{220, 20, 60}},
	{"maroon", [3]uint8{128, 0, 0}},
	{"orange", [3]uint8{255, 140, 0}},
	{"brown", [3]uint8{139, 69, 19}},
	{"tan", [3]uint8{210, 180, 140}},
	{"yellow", [3]uint8{255, 215, 0}},
	{"gold", [3]uint8{218, 165, 32}},
	{"green", [3]uint8{34, 139, 34}},
	{"olive", [3]uint8{107, 142, 35}},
	{"teal", [3]uint8{0, 128, 128}},
	{"cyan", [3]uint8{0, 139, 139}},
	{"turquoise", [3]uint8{64, 224, 208}},
	{"blue", [3]uint8{30, 144, 255}},
	{"navy", [3]uint8{0, 0, 128}},
	{"royal", [3]uint8{65, 105, 225}},
	{"purple", [3]uint8{128, 0, 128}},
	{"violet", [3]uint8{138, 43, 226}},
	{"pink", [3]uint8{255, 105, 180}},
	{"magenta", [3]uint8{255, 0, 255}},
	{"burgundy", [3]uint8{128, 0, 32}},
	{"charcoal", [3]uint8{54, 69, 79}},
}

// Swatch is one quantized palette color with its pixel count and classified name.
type Swatch struct {
	Hex   string
	Name  string
	Count int
}

// Result holds the extracted color names, most frequent first, and the swatches
// that were inspected to produce them.
type Result struct {
	Names    []string
	Swatches []Swatch
}

// Nearest returns the name of the table entry closest to c by squared
// Euclidean distance over RGB.
func Nearest(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)

	best, bestDist := Basic[0].Name, -1
	for _, e := range Basic {
		dr := int(n.R) - int(e.RGB[0])
		dg := int(n.G) - int(e.RGB[1])
		db := int(n.B) - int(e.RGB[2])
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = e.Name, d
		}
	}

	return best
}

// Extract returns up to k distinct color names for img. The image is sampled at
// 64x64, quantized to at most 32 colors, and the 2k most frequent palette colors
// are classified in order. Pixels of a removed background are ignored. The
// result is never empty: Unknown is returned when nothing could be sampled.
func Extract(img image.Image, k int) Result {
	if k <= 0 {
		k = 1
	}

	pixels := opaquePixels(img)
	if len(pixels) == 0 {
		return Result{Names: []string{Unknown}}
	}

	// Quantize a strip holding only the visible pixels.
	strip := image.NewNRGBA(image.Rect(0, 0, len(pixels), 1))
	for i, p := range pixels {
		strip.SetNRGBA(i, 0, p)
	}

	q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean}
	pal := q.Quantize(make(color.Palette, 0, paletteSize), strip)
	if len(pal) == 0 {
		return Result{Names: []string{Unknown}}
	}

	counts := make([]int, len(pal))
	for _, p := range pixels {
		counts[pal.Index(p)]++
	}

	order := make([]int, 0, len(pal))
	for i, n := range counts {
		if n > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] > counts[order[b]]
	})

	var res Result
	for i, idx := range order {
		if i >= 2*k {
			break
		}

		name := Nearest(pal[idx])
		res.Swatches = append(res.Swatches, Swatch{
			Hex:   hex(pal[idx]),
			Name:  name,
			Count: counts[idx],
		})

		if !contains(res.Names, name) {
			res.Names = append(res.Names, name)
		}
		if len(res.Names) >= k {
			break
		}
	}

	if len(res.Names) == 0 {
		res.Names = []string{Unknown}
	}

	return res
}

// opaquePixels downsamples img and returns its visible pixels in row order.
func opaquePixels(img image.Image) []color.NRGBA {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}

	small := imaging.Resize(img, sampleSize, sampleSize, imaging.Box)

	out := make([]color.NRGBA, 0, sampleSize*sampleSize)
	for y := 0; y < small.Bounds().Dy(); y++ {
		for x := 0; x < small.Bounds().Dx(); x++ {
			c := small.NRGBAAt(x, y)
			if c.A < alphaCutover {
				continue
			}
			c.A = 255
			out = append(out, c)
		}
	}

	return out
}

func hex(c color.Color) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}

	return false
}

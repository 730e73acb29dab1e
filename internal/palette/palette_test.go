package palette

import (
	"image"
	"image/color"
	"reflect"
	"testing"
)

func fill(w, h int, pick func(x, y int) color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, pick(x, y))
		}
	}
	return img
}

func TestNearest(t *testing.T) {
	tests := []struct {
		name string
		in   color.Color
		want string
	}{
		{"exact black", color.NRGBA{0, 0, 0, 255}, "black"},
		{"exact cyan", color.NRGBA{0, 139, 139, 255}, "cyan"},
		{"near red", color.NRGBA{210, 30, 50, 255}, "red"},
		{"near white", color.NRGBA{250, 250, 250, 255}, "white"},
		// equidistant from black and navy: the earlier table entry wins
		{"tie", color.NRGBA{0, 0, 64, 255}, "black"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Nearest(tt.in); got != tt.want {
				t.Fatalf("Nearest(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtract_SolidColor(t *testing.T) {
	img := fill(64, 64, func(_, _ int) color.NRGBA { return color.NRGBA{220, 20, 60, 255} })

	got := Extract(img, 3)
	if !reflect.DeepEqual(got.Names, []string{"red"}) {
		t.Fatalf("expected [red], got %v", got.Names)
	}
	if len(got.Swatches) == 0 || got.Swatches[0].Hex != "#dc143c" {
		t.Fatalf("unexpected swatches %+v", got.Swatches)
	}
}

func TestExtract_MostFrequentFirst(t *testing.T) {
	img := fill(64, 64, func(x, _ int) color.NRGBA {
		if x < 48 {
			return color.NRGBA{0, 0, 0, 255}
		}
		return color.NRGBA{255, 255, 255, 255}
	})

	got := Extract(img, 3)
	if !reflect.DeepEqual(got.Names, []string{"black", "white"}) {
		t.Fatalf("expected [black white], got %v", got.Names)
	}
}

func TestExtract_StopsAtK(t *testing.T) {
	img := fill(64, 64, func(x, _ int) color.NRGBA {
		switch {
		case x < 30:
			return color.NRGBA{0, 0, 0, 255}
		case x < 50:
			return color.NRGBA{255, 255, 255, 255}
		default:
			return color.NRGBA{220, 20, 60, 255}
		}
	})

	got := Extract(img, 2)
	if !reflect.DeepEqual(got.Names, []string{"black", "white"}) {
		t.Fatalf("expected [black white], got %v", got.Names)
	}
}

func TestExtract_IgnoresRemovedBackground(t *testing.T) {
	img := fill(64, 64, func(x, y int) color.NRGBA {
		if x >= 16 && x < 48 && y >= 16 && y < 48 {
			return color.NRGBA{30, 144, 255, 255}
		}
		return color.NRGBA{0, 0, 0, 0}
	})

	got := Extract(img, 3)
	if !reflect.DeepEqual(got.Names, []string{"blue"}) {
		t.Fatalf("expected [blue], got %v", got.Names)
	}
}

func TestExtract_FullyTransparentIsUnknown(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))

	got := Extract(img, 3)
	if !reflect.DeepEqual(got.Names, []string{Unknown}) {
		t.Fatalf("expected [%s], got %v", Unknown, got.Names)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	img := fill(200, 150, func(x, y int) color.NRGBA {
		return color.NRGBA{uint8(x), uint8(y), uint8((x + y) / 2), 255}
	})

	first := Extract(img, 3)
	for i := 0; i < 5; i++ {
		again := Extract(img, 3)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

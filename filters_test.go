package main

import (
	"image"
	"image/color"
	"testing"
)

func TestFilterByID(t *testing.T) {
	for _, id := range FilterIDs() {
		if _, ok := FilterByID(id); !ok {
			t.Errorf("listed filter %q not found", id)
		}
	}
	if _, ok := FilterByID("Nope"); ok {
		t.Error("unknown filter found")
	}
}

func TestFilterSet_IncludesOriginalFirst(t *testing.T) {
	ids := FilterIDs()
	if len(ids) == 0 || ids[0] != FilterOriginal {
		t.Fatalf("expected %q first, got %v", FilterOriginal, ids)
	}
}

func TestFilterCSS(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"Original", "none"},
		{"B&W", "grayscale(100%) contrast(108%)"},
		{"Sepia", "sepia(65%) brightness(105%)"},
		{"Vivid", "contrast(110%) saturate(140%)"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			preset, ok := FilterByID(tt.id)
			if !ok {
				t.Fatalf("filter %q missing", tt.id)
			}
			if got := preset.CSS(); got != tt.want {
				t.Errorf("CSS: expected %q, got %q", tt.want, got)
			}
		})
	}
}

func solidImage(width, height int, fill color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
	return img
}

func TestFilterApply_OriginalIsIdentity(t *testing.T) {
	src := solidImage(8, 8, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	preset, _ := FilterByID(FilterOriginal)
	out := preset.Apply(src)
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	got := out.NRGBAAt(4, 4)
	if got != src.NRGBAAt(4, 4) {
		t.Errorf("pixel changed under Original: %+v", got)
	}
}

func TestFilterApply_BWIsGray(t *testing.T) {
	src := solidImage(8, 8, color.NRGBA{R: 200, G: 40, B: 90, A: 255})
	preset, _ := FilterByID("B&W")
	out := preset.Apply(src)
	px := out.NRGBAAt(4, 4)
	if px.R != px.G || px.G != px.B {
		t.Errorf("B&W output not gray: %+v", px)
	}
}

func TestSepiaTone_FullAmountMatchesMatrix(t *testing.T) {
	src := solidImage(2, 2, color.NRGBA{R: 100, G: 150, B: 200, A: 255})
	out := sepiaTone(src, 1)
	px := out.NRGBAAt(0, 0)
	// 0.393*100 + 0.769*150 + 0.189*200 = 192.45
	if px.R != 192 {
		t.Errorf("sepia R: expected 192, got %d", px.R)
	}
	if px.A != 255 {
		t.Errorf("sepia changed alpha: %d", px.A)
	}
}

func TestSepiaTone_ZeroAmountIsIdentity(t *testing.T) {
	fill := color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	out := sepiaTone(solidImage(2, 2, fill), 0)
	if got := out.NRGBAAt(1, 1); got != fill {
		t.Errorf("sepia(0) changed pixel: %+v", got)
	}
}

package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// FilterOriginal is the identity preset applied to fresh crops.
const FilterOriginal = "Original"

// FilterPreset is one entry in the fixed set of visual filters. The same
// parameters drive both the display-layer CSS filter string and the pixel
// adjustments applied at export, so the preview and the artifact agree.
//
// Brightness, Contrast and Saturation are percentage deltas in the range
// imaging's Adjust* functions accept. Sepia is an amount from 0 to 100.
type FilterPreset struct {
	ID         string
	Grayscale  bool
	Sepia      float64
	Brightness float64
	Contrast   float64
	Saturation float64
}

var filterPresets = []FilterPreset{
	{ID: FilterOriginal},
	{ID: "B&W", Grayscale: true, Contrast: 8},
	{ID: "Sepia", Sepia: 65, Brightness: 5},
	{ID: "Vivid", Saturation: 40, Contrast: 10},
	{ID: "Warm", Sepia: 30, Saturation: 15, Brightness: 3},
	{ID: "Cool", Saturation: -10, Brightness: 2, Contrast: 4},
	{ID: "Fade", Saturation: -20, Brightness: 8, Contrast: -8},
}

// FilterByID looks up a preset by its identifier.
func FilterByID(id string) (FilterPreset, bool) {
	for _, p := range filterPresets {
		if p.ID == id {
			return p, true
		}
	}
	return FilterPreset{}, false
}

// FilterIDs returns the preset identifiers in display order.
func FilterIDs() []string {
	ids := make([]string, len(filterPresets))
	for i, p := range filterPresets {
		ids[i] = p.ID
	}
	return ids
}

// CSS returns the CSS filter expression for the display layer. The
// function order matches the order Apply performs the pixel adjustments.
func (p FilterPreset) CSS() string {
	var parts []string
	if p.Grayscale {
		parts = append(parts, "grayscale(100%)")
	}
	if p.Sepia > 0 {
		parts = append(parts, fmt.Sprintf("sepia(%.0f%%)", p.Sepia))
	}
	if p.Brightness != 0 {
		parts = append(parts, fmt.Sprintf("brightness(%.0f%%)", 100+p.Brightness))
	}
	if p.Contrast != 0 {
		parts = append(parts, fmt.Sprintf("contrast(%.0f%%)", 100+p.Contrast))
	}
	if p.Saturation != 0 {
		parts = append(parts, fmt.Sprintf("saturate(%.0f%%)", 100+p.Saturation))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

// Apply runs the preset's pixel adjustments over the source image.
func (p FilterPreset) Apply(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	if p.Grayscale {
		out = imaging.Grayscale(out)
	}
	if p.Sepia > 0 {
		out = sepiaTone(out, p.Sepia/100)
	}
	if p.Brightness != 0 {
		out = imaging.AdjustBrightness(out, p.Brightness)
	}
	if p.Contrast != 0 {
		out = imaging.AdjustContrast(out, p.Contrast)
	}
	if p.Saturation != 0 {
		out = imaging.AdjustSaturation(out, p.Saturation)
	}
	return out
}

// sepiaTone blends each pixel toward the standard sepia matrix by the
// given amount (0 leaves the pixel alone, 1 is full sepia).
func sepiaTone(img image.Image, amount float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		r := float64(c.R)
		g := float64(c.G)
		b := float64(c.B)
		sr := 0.393*r + 0.769*g + 0.189*b
		sg := 0.349*r + 0.686*g + 0.168*b
		sb := 0.272*r + 0.534*g + 0.131*b
		return color.NRGBA{
			R: blendChannel(r, sr, amount),
			G: blendChannel(g, sg, amount),
			B: blendChannel(b, sb, amount),
			A: c.A,
		}
	})
}

func blendChannel(orig, target, amount float64) uint8 {
	v := orig + (target-orig)*amount
	if v > 255 {
		v = 255
	}
	if v < 0 {
		v = 0
	}
	return uint8(v + 0.5)
}

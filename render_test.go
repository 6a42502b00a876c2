package main

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
)

func testJob(state CropState) RenderJob {
	return RenderJob{Frame: 480, OutputSize: 64, Quality: 90, State: state}
}

func renderToImage(t *testing.T, source []byte, job RenderJob) ([]byte, *bytes.Reader) {
	t.Helper()
	var buf bytes.Buffer
	r := NewGGRenderer()
	if err := r.Render(context.Background(), bytes.NewReader(source), &buf, job); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return buf.Bytes(), bytes.NewReader(buf.Bytes())
}

func channelsClose(a, b color.RGBA, tolerance int) bool {
	diff := func(x, y uint8) int {
		d := int(x) - int(y)
		if d < 0 {
			d = -d
		}
		return d
	}
	return diff(a.R, b.R) <= tolerance && diff(a.G, b.G) <= tolerance && diff(a.B, b.B) <= tolerance
}

func TestGGRenderer_CoversCanvas(t *testing.T) {
	source := makePNG(t, 100, 80, color.NRGBA{R: 255, A: 255})
	out, reader := renderToImage(t, source, testJob(CropState{Zoom: 1, Filter: FilterOriginal}))
	if len(out) == 0 {
		t.Fatal("empty artifact")
	}
	img, err := jpeg.Decode(reader)
	if err != nil {
		t.Fatalf("artifact is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
		t.Fatalf("expected 64x64 output, got %v", img.Bounds())
	}
	// Cover-fit at zoom 1, pan 0 leaves no background anywhere.
	red := color.RGBA{R: 255, A: 255}
	for _, pt := range [][2]int{{0, 0}, {63, 0}, {0, 63}, {63, 63}, {32, 32}} {
		r, g, b, _ := img.At(pt[0], pt[1]).RGBA()
		got := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
		if !channelsClose(got, red, 12) {
			t.Errorf("pixel at %v not red: %+v", pt, got)
		}
	}
}

func TestGGRenderer_Deterministic(t *testing.T) {
	source := makePNG(t, 120, 90, color.NRGBA{R: 30, G: 180, B: 90, A: 255})
	job := testJob(CropState{Zoom: 1.7, Pan: Vec2{X: 25, Y: -13}, Filter: "Vivid"})
	a, _ := renderToImage(t, source, job)
	b, _ := renderToImage(t, source, job)
	if !bytes.Equal(a, b) {
		t.Error("two exports with identical inputs produced different artifacts")
	}
}

func TestGGRenderer_AppliesFilter(t *testing.T) {
	source := makePNG(t, 100, 80, color.NRGBA{R: 220, G: 40, B: 40, A: 255})
	_, reader := renderToImage(t, source, testJob(CropState{Zoom: 1, Filter: "B&W"}))
	img, err := jpeg.Decode(reader)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.At(32, 32).RGBA()
	rr, gg, bb := int(r>>8), int(g>>8), int(b>>8)
	if abs(rr-gg) > 6 || abs(gg-bb) > 6 {
		t.Errorf("B&W output not gray at center: r=%d g=%d b=%d", rr, gg, bb)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestGGRenderer_DecodeFailure(t *testing.T) {
	var buf bytes.Buffer
	r := NewGGRenderer()
	err := r.Render(context.Background(), strings.NewReader("not an image"), &buf, testJob(CropState{Zoom: 1, Filter: FilterOriginal}))
	if !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("expected ErrDecodeFailure, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("failed render wrote partial output")
	}
}

func TestGGRenderer_UnknownFilter(t *testing.T) {
	source := makePNG(t, 10, 10, color.NRGBA{A: 255})
	var buf bytes.Buffer
	r := NewGGRenderer()
	err := r.Render(context.Background(), bytes.NewReader(source), &buf, testJob(CropState{Zoom: 1, Filter: "Nope"}))
	if !errors.Is(err, ErrExportFailure) {
		t.Errorf("expected ErrExportFailure, got %v", err)
	}
}

func TestGGRenderer_InvalidJob(t *testing.T) {
	source := makePNG(t, 10, 10, color.NRGBA{A: 255})
	var buf bytes.Buffer
	r := NewGGRenderer()
	err := r.Render(context.Background(), bytes.NewReader(source), &buf, RenderJob{Frame: 0, OutputSize: 64, Quality: 90})
	if !errors.Is(err, ErrExportFailure) {
		t.Errorf("expected ErrExportFailure for zero frame, got %v", err)
	}
}

func TestDisplayFor(t *testing.T) {
	state := CropState{Zoom: 1.5, Pan: Vec2{X: 12, Y: -8}, Filter: "B&W"}
	d := DisplayFor(480, IntrinsicSize{Width: 1200, Height: 800}, state)
	if d.Width != 720 || d.Height != 480 {
		t.Errorf("element size: expected 720x480, got %gx%g", d.Width, d.Height)
	}
	want := "translate(-50%, -50%) translate(12.00px, -8.00px) scale(1.5000)"
	if d.Transform != want {
		t.Errorf("transform: expected %q, got %q", want, d.Transform)
	}
	if !strings.Contains(d.Filter, "grayscale") {
		t.Errorf("filter css missing grayscale: %q", d.Filter)
	}
}

func TestDisplayFor_UnknownIntrinsicFallsBack(t *testing.T) {
	d := DisplayFor(480, IntrinsicSize{}, CropState{Zoom: 1.2, Filter: FilterOriginal})
	if d.Width != 480 || d.Height != 480 {
		t.Errorf("expected frame-sized fallback, got %gx%g", d.Width, d.Height)
	}
	if d.Filter != "none" {
		t.Errorf("expected filter none, got %q", d.Filter)
	}
}

package main

import "math"

// Vec2 is a 2D offset in on-screen pixels, relative to the center of the
// display frame. Positive X moves the image right, positive Y moves it down.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IntrinsicSize is the pixel size of a decoded source image. The zero
// value means the image has not finished loading yet.
type IntrinsicSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Known reports whether the intrinsic dimensions have been captured.
func (s IntrinsicSize) Known() bool {
	return s.Width > 0 && s.Height > 0
}

// CoverSize returns the smallest size that fills a frame×frame square in
// both dimensions while preserving the image's aspect ratio. While the
// intrinsic size is unknown the frame itself is returned, so the image is
// treated as already covering and early interactions stay safe.
func CoverSize(frame float64, intrinsic IntrinsicSize) Size {
	if frame <= 0 || !intrinsic.Known() {
		return Size{Width: frame, Height: frame}
	}
	w := float64(intrinsic.Width)
	h := float64(intrinsic.Height)
	scale := math.Max(frame/w, frame/h)
	return Size{Width: w * scale, Height: h * scale}
}

// RenderedSize returns the on-screen size of the cover-fit image under
// the given zoom factor.
func RenderedSize(cover Size, zoom float64) Size {
	return Size{Width: cover.Width * zoom, Height: cover.Height * zoom}
}

// PanBounds returns the largest pan offsets, per axis, that keep the
// rendered image fully covering the frame. An axis with no slack gets 0.
func PanBounds(frame float64, rendered Size) (maxX, maxY float64) {
	maxX = math.Max(0, (rendered.Width-frame)/2)
	maxY = math.Max(0, (rendered.Height-frame)/2)
	return maxX, maxY
}

// ClampPan clamps pan so the rendered image keeps covering the frame.
// Axes are clamped independently, so a wide image can still pan
// horizontally even when it has no vertical slack.
func ClampPan(frame float64, rendered Size, pan Vec2) Vec2 {
	maxX, maxY := PanBounds(frame, rendered)
	return Vec2{
		X: clampFloat(pan.X, -maxX, maxX),
		Y: clampFloat(pan.Y, -maxY, maxY),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ExportParams are the draw parameters that reproduce an on-screen crop
// on a square output canvas.
type ExportParams struct {
	Scale      float64 // intrinsic pixels -> output-canvas pixels
	DrawWidth  float64
	DrawHeight float64
	CenterX    float64 // image center on the output canvas
	CenterY    float64
	DrawX      float64 // top-left corner of the drawn image
	DrawY      float64
}

// ComputeExportParams derives the canvas draw parameters for a crop. The
// cover scale is recomputed at the output resolution and the pan,
// captured in display-frame pixels, is converted into canvas units, so
// the result is independent of the on-screen frame size.
//
// The intrinsic size must be known and frame must be positive; the
// render pipeline guarantees both before calling.
func ComputeExportParams(output, frame float64, intrinsic IntrinsicSize, zoom float64, pan Vec2) ExportParams {
	w := float64(intrinsic.Width)
	h := float64(intrinsic.Height)
	baseScale := math.Max(output/w, output/h)
	scale := baseScale * zoom

	toCanvas := output / frame
	cx := output/2 + pan.X*toCanvas
	cy := output/2 + pan.Y*toCanvas

	dw := w * scale
	dh := h * scale
	return ExportParams{
		Scale:      scale,
		DrawWidth:  dw,
		DrawHeight: dh,
		CenterX:    cx,
		CenterY:    cy,
		DrawX:      cx - dw/2,
		DrawY:      cy - dh/2,
	}
}

package main

import (
	"context"
	"fmt"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// DisplayTransform is what the frontend needs to show a crop on screen:
// the image element's size in frame-relative pixels plus the CSS
// transform and filter that reproduce the crop non-destructively.
type DisplayTransform struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Transform string  `json:"transform"`
	Filter    string  `json:"filter"`
}

// DisplayFor composes the on-screen transform for a crop: the image is
// sized to cover the frame, centered, offset by pan, then scaled about
// its own center.
func DisplayFor(frame float64, intrinsic IntrinsicSize, state CropState) DisplayTransform {
	cover := CoverSize(frame, intrinsic)
	css := "none"
	if preset, ok := FilterByID(state.Filter); ok {
		css = preset.CSS()
	}
	return DisplayTransform{
		Width:  cover.Width,
		Height: cover.Height,
		Transform: fmt.Sprintf("translate(-50%%, -50%%) translate(%.2fpx, %.2fpx) scale(%.4f)",
			state.Pan.X, state.Pan.Y, state.Zoom),
		Filter: css,
	}
}

// RenderJob carries everything one export needs besides the source
// bytes. Frame is the display frame size the pan was captured in;
// OutputSize is the canonical square output resolution.
type RenderJob struct {
	Frame      float64
	OutputSize int
	Quality    int
	State      CropState
}

// Renderer rasterizes one saved crop into a square preview artifact.
// It reads the source image from r and writes the encoded result to w.
type Renderer interface {
	Render(ctx context.Context, r io.Reader, w io.Writer, job RenderJob) error
}

// GGRenderer implements Renderer with a gg canvas, using
// disintegration/imaging for decode, filtering and encode. The draw
// re-derives the crop geometry from the true intrinsic size at the
// output resolution, so the artifact matches the on-screen crop
// regardless of the frame size it was edited at.
type GGRenderer struct{}

// NewGGRenderer creates a new GGRenderer.
func NewGGRenderer() *GGRenderer {
	return &GGRenderer{}
}

// Render implements the Renderer interface.
func (g *GGRenderer) Render(ctx context.Context, r io.Reader, w io.Writer, job RenderJob) error {
	if job.OutputSize <= 0 || job.Frame <= 0 {
		return fmt.Errorf("%w: invalid render job (output=%d frame=%g)", ErrExportFailure, job.OutputSize, job.Frame)
	}

	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	bounds := src.Bounds()
	intrinsic := IntrinsicSize{Width: bounds.Dx(), Height: bounds.Dy()}
	if !intrinsic.Known() {
		return fmt.Errorf("%w: source image has no pixels", ErrDecodeFailure)
	}

	preset, ok := FilterByID(job.State.Filter)
	if !ok {
		return fmt.Errorf("%w: %v %q", ErrExportFailure, ErrUnknownFilter, job.State.Filter)
	}
	filtered := preset.Apply(src)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrExportFailure, err)
	}

	params := ComputeExportParams(float64(job.OutputSize), job.Frame, intrinsic, job.State.Zoom, job.State.Pan)

	dc := gg.NewContext(job.OutputSize, job.OutputSize)
	dc.SetColor(color.White)
	dc.Clear()
	dc.Push()
	dc.Translate(params.DrawX, params.DrawY)
	dc.Scale(params.Scale, params.Scale)
	dc.DrawImage(filtered, 0, 0)
	dc.Pop()

	if err := imaging.Encode(w, dc.Image(), imaging.JPEG, imaging.JPEGQuality(job.Quality)); err != nil {
		return fmt.Errorf("%w: %v", ErrExportFailure, err)
	}
	return nil
}

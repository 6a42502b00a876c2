package main

import (
	"errors"
	"image/color"
	"testing"
)

func TestSniffImageKind(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want ImageKind
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0, 0}, KindJPEG},
		{"png", append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 8)...), KindPNG},
		{"webp", []byte("RIFF\x24\x00\x00\x00WEBPVP8 "), KindWebP},
		{"heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), KindHEIC},
		{"heif mif1", []byte("\x00\x00\x00\x18ftypmif1\x00\x00\x00\x00"), KindHEIC},
		{"mp4 is not heic", []byte("\x00\x00\x00\x18ftypisom\x00\x00\x00\x00"), KindUnknown},
		{"text", []byte("hello world, definitely not an image"), KindUnknown},
		{"empty", nil, KindUnknown},
		{"truncated riff", []byte("RIFF"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffImageKind(tt.data); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestValidateUpload_CapturesDimensions(t *testing.T) {
	data := makePNG(t, 123, 77, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	size, err := ValidateUpload(data, 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size.Width != 123 || size.Height != 77 {
		t.Errorf("dimensions: expected 123x77, got %dx%d", size.Width, size.Height)
	}
}

func TestValidateUpload_TooLarge(t *testing.T) {
	data := makePNG(t, 64, 64, color.NRGBA{A: 255})
	_, err := ValidateUpload(data, 16)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestValidateUpload_NoLimit(t *testing.T) {
	data := makePNG(t, 64, 64, color.NRGBA{A: 255})
	if _, err := ValidateUpload(data, 0); err != nil {
		t.Errorf("limit 0 should disable the size check, got %v", err)
	}
}

func TestValidateUpload_HEICDistinctFromUnknown(t *testing.T) {
	heic := []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00")
	_, err := ValidateUpload(heic, 1<<20)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	_, err2 := ValidateUpload([]byte("plain text"), 1<<20)
	if !errors.Is(err2, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for junk, got %v", err2)
	}
	if err.Error() == err2.Error() {
		t.Error("HEIC rejection should be distinguishable from generic junk")
	}
}

func TestValidateUpload_CorruptHeader(t *testing.T) {
	// Valid PNG signature but garbage afterwards.
	data := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, []byte("garbage")...)
	_, err := ValidateUpload(data, 1<<20)
	if !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("expected ErrDecodeFailure, got %v", err)
	}
}

package main

import (
	"bytes"
	"fmt"
	"image"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ImageKind is the sniffed container format of an upload.
type ImageKind string

const (
	KindJPEG    ImageKind = "jpeg"
	KindPNG     ImageKind = "png"
	KindWebP    ImageKind = "webp"
	KindHEIC    ImageKind = "heic"
	KindUnknown ImageKind = "unknown"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// SniffImageKind inspects the leading bytes of an upload and reports its
// container format. HEIC/HEIF gets its own verdict rather than falling
// into "unknown": phone uploads arrive in it routinely and the rejection
// message should say what is wrong.
func SniffImageKind(data []byte) ImageKind {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return KindJPEG
	}
	if len(data) >= 8 && bytes.Equal(data[:8], pngSignature) {
		return KindPNG
	}
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return KindWebP
	}
	// ISO-BMFF container: 4-byte box size, "ftyp", then the major brand.
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		switch string(data[8:12]) {
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return KindHEIC
		}
	}
	return KindUnknown
}

// ValidateUpload checks an upload before any slot state is touched and
// captures the intrinsic pixel dimensions. Only the image header is
// decoded here, so corrupt pixel data can still surface later as a
// decode failure during export.
func ValidateUpload(data []byte, maxBytes int64) (IntrinsicSize, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return IntrinsicSize{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), maxBytes)
	}
	switch kind := SniffImageKind(data); kind {
	case KindJPEG, KindPNG, KindWebP:
	case KindHEIC:
		return IntrinsicSize{}, fmt.Errorf("%w: HEIC/HEIF cannot be decoded, convert to JPEG first", ErrUnsupportedFormat)
	default:
		return IntrinsicSize{}, fmt.Errorf("%w: not a JPEG, PNG or WebP file", ErrUnsupportedFormat)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return IntrinsicSize{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return IntrinsicSize{}, fmt.Errorf("%w: image has no pixels", ErrDecodeFailure)
	}
	return IntrinsicSize{Width: cfg.Width, Height: cfg.Height}, nil
}

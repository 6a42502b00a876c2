package main

import "errors"

// Upload and pipeline failures surfaced to the user. All of these are
// handled at the slot level; none of them escalate past the request that
// triggered them, and none of them touch other slots.
var (
	// ErrUnsupportedFormat means the file type cannot be decoded by the
	// image pipeline (e.g. HEIC). Rejected before any slot state changes.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrFileTooLarge means the upload exceeds the configured byte limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrDecodeFailure means an accepted-looking file failed to decode.
	ErrDecodeFailure = errors.New("image decode failed")

	// ErrExportFailure means the offline re-render could not produce an
	// artifact. The slot's prior preview, if any, is left untouched.
	ErrExportFailure = errors.New("export failed")
)

// Session-level failures reported by slot operations.
var (
	ErrSlotNotFound  = errors.New("slot not found")
	ErrNoPhoto       = errors.New("slot has no photo")
	ErrLastSlot      = errors.New("cannot remove the last slot")
	ErrUnknownFilter = errors.New("unknown filter")
)

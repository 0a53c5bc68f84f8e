package dicom

import (
	"errors"
	"fmt"
)

// Errors returned while enumerating and decoding a series.
var (
	// ErrSourceUnavailable means the series location could not be enumerated.
	ErrSourceUnavailable = errors.New("series source unavailable")

	// ErrInvalidGeometry means a frame declared rows or columns <= 0.
	ErrInvalidGeometry = errors.New("invalid frame geometry")

	// ErrTruncatedBuffer means the pixel buffer length does not match the geometry.
	ErrTruncatedBuffer = errors.New("pixel buffer length mismatch")

	// ErrUnsupportedFormat means the frame uses a layout outside 16-bit single-sample native data.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
)

// FrameError ties a decode failure to the frame it came from.
type FrameError struct {
	Ref string
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %s: %v", e.Ref, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

package dicom

import (
	"encoding/binary"
	"fmt"
)

// FrameGeometry describes the sample layout of one frame.
type FrameGeometry struct {
	Rows                int
	Columns             int
	BitsAllocated       int
	BitsStored          int
	HighBit             int
	PixelRepresentation int // 0 = unsigned, 1 = signed
	SamplesPerPixel     int
}

// PixelCount returns rows*columns.
func (g FrameGeometry) PixelCount() int {
	return g.Rows * g.Columns
}

// Signed reports whether samples are stored as two's complement.
func (g FrameGeometry) Signed() bool {
	return g.PixelRepresentation == 1
}

// Validate checks the geometry against what the decoder supports.
func (g FrameGeometry) Validate() error {
	if g.Rows <= 0 || g.Columns <= 0 {
		return fmt.Errorf("%w: rows=%d columns=%d", ErrInvalidGeometry, g.Rows, g.Columns)
	}
	if g.BitsAllocated != 16 {
		return fmt.Errorf("%w: bits allocated %d", ErrUnsupportedFormat, g.BitsAllocated)
	}
	// SamplesPerPixel 0 means the tag was absent; monochrome is assumed.
	if g.SamplesPerPixel > 1 {
		return fmt.Errorf("%w: %d samples per pixel", ErrUnsupportedFormat, g.SamplesPerPixel)
	}
	return nil
}

// RawFrame is a decoded frame: geometry plus rows*columns signed samples.
type RawFrame struct {
	Geometry FrameGeometry
	Samples  []int16
}

// DecodeFrame turns a little-endian pixel buffer into signed 16-bit samples.
// A buffer that is not exactly 2*rows*columns bytes long is rejected, never padded.
func DecodeFrame(geom FrameGeometry, data []byte) (*RawFrame, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	want := 2 * geom.PixelCount()
	if len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %dx%d",
			ErrTruncatedBuffer, len(data), want, geom.Columns, geom.Rows)
	}

	samples := make([]int16, geom.PixelCount())
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}

	return &RawFrame{Geometry: geom, Samples: samples}, nil
}

// EncodeSamples is the inverse of DecodeFrame's reinterpretation.
func EncodeSamples(samples []int16) []byte {
	data := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(s))
	}
	return data
}

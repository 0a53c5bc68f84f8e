// Package imaging turns signed sample arrays into 8-bit grayscale rasters and
// moves those rasters in and out of portable image formats.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrGeometryMismatch is returned when the sample count does not match the
// declared raster size. It signals a caller bug, not bad input data.
var ErrGeometryMismatch = errors.New("geometry mismatch")

// Display ranges used by interactive controls. They are not applied by Render.
const (
	MinDisplayCenter = -1200.0
	MaxDisplayCenter = 1200.0
	MinDisplayWidth  = 1.0
	MaxDisplayWidth  = 3000.0
)

// WindowLevel is a grayscale window: samples in [Center-Width/2, Center+Width/2]
// map linearly onto [0, 255].
type WindowLevel struct {
	Center float64 `json:"center" yaml:"center"`
	Width  float64 `json:"width" yaml:"width"`
}

// MaxWindowValue bounds Center and Width after normalization. It is far
// outside the int16 sample range, so clamping never changes a render.
const MaxWindowValue = 1e9

// Normalized returns w with Width raised to at least 1 and both fields
// finite: a NaN center becomes 0, and infinities are limited to
// MaxWindowValue.
func (w WindowLevel) Normalized() WindowLevel {
	if math.IsNaN(w.Center) {
		w.Center = 0
	}
	w.Center = math.Max(-MaxWindowValue, math.Min(MaxWindowValue, w.Center))
	if !(w.Width >= 1) { // also catches NaN
		w.Width = 1
	}
	w.Width = math.Min(MaxWindowValue, w.Width)
	return w
}

// ClampForDisplay bounds w to the ranges interactive controls expose.
func (w WindowLevel) ClampForDisplay() WindowLevel {
	w.Center = math.Max(MinDisplayCenter, math.Min(MaxDisplayCenter, w.Center))
	w.Width = math.Max(MinDisplayWidth, math.Min(MaxDisplayWidth, w.Width))
	return w
}

func (w WindowLevel) String() string {
	return fmt.Sprintf("%d/%d", int(math.Round(w.Center)), int(math.Round(w.Width)))
}

// RenderedSlice is an 8-bit grayscale raster, one byte per pixel, row-major.
type RenderedSlice struct {
	Rows    int
	Columns int
	Pix     []byte
}

// At returns the intensity at column x, row y.
func (s *RenderedSlice) At(x, y int) byte {
	return s.Pix[y*s.Columns+x]
}

// Gray wraps the raster as an image.Gray without copying.
func (s *RenderedSlice) Gray() *image.Gray {
	return &image.Gray{
		Pix:    s.Pix,
		Stride: s.Columns,
		Rect:   image.Rect(0, 0, s.Columns, s.Rows),
	}
}

// Equal reports whether two rasters have identical geometry and pixels.
func (s *RenderedSlice) Equal(o *RenderedSlice) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Rows != o.Rows || s.Columns != o.Columns || len(s.Pix) != len(o.Pix) {
		return false
	}
	for i := range s.Pix {
		if s.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// Render applies wl to samples laid out as height rows of width columns.
func Render(samples []int16, width, height int, wl WindowLevel) (*RenderedSlice, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrGeometryMismatch, width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("%w: %d samples for %dx%d", ErrGeometryMismatch, len(samples), width, height)
	}

	wl = wl.Normalized()
	low := wl.Center - wl.Width/2
	invW := 1 / wl.Width

	pix := make([]byte, len(samples))
	for i, s := range samples {
		n := (float64(s) - low) * invW
		// Clamp before scaling so extreme samples cannot overflow the byte.
		n = math.Max(0, math.Min(1, n))
		pix[i] = uint8(n*255 + 0.5)
	}

	return &RenderedSlice{Rows: height, Columns: width, Pix: pix}, nil
}

// MustRender is Render for callers that have already validated geometry.
// It panics on ErrGeometryMismatch.
func MustRender(samples []int16, width, height int, wl WindowLevel) *RenderedSlice {
	s, err := Render(samples, width, height, wl)
	if err != nil {
		panic(err)
	}
	return s
}

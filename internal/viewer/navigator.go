// Package viewer holds the slice navigation state machine and binds reports,
// series sources and presentation sinks together.
package viewer

import (
	"errors"
	"fmt"

	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/imaging"
)

var (
	// ErrNotBound is returned by navigation calls while no non-empty source is bound.
	ErrNotBound = errors.New("no series bound")

	// ErrNoSamples is returned by Frame when the bound source is pre-rendered.
	ErrNoSamples = errors.New("source has no samples")
)

// State is the navigator state.
type State int

const (
	Empty State = iota
	Bound
)

func (s State) String() string {
	if s == Bound {
		return "bound"
	}
	return "empty"
}

// BindOption configures Bind.
type BindOption func(*bindConfig)

type bindConfig struct {
	window imaging.WindowLevel
}

// WithWindowLevel sets the window in effect after binding.
func WithWindowLevel(wl imaging.WindowLevel) BindOption {
	return func(c *bindConfig) {
		c.window = wl
	}
}

type rasterKey struct {
	index  int
	window imaging.WindowLevel
}

// Navigator tracks the current slice and window of one bound source. It is
// single-owner and not safe for concurrent use.
type Navigator struct {
	src    Source
	state  State
	index  int
	window imaging.WindowLevel

	// last decoded frame
	frameIndex int
	frame      *dicom.RawFrame

	// last rendered raster
	rasterKey rasterKey
	raster    *imaging.RenderedSlice
}

// NewNavigator returns an Empty navigator.
func NewNavigator() *Navigator {
	return &Navigator{window: imaging.DefaultWindow, frameIndex: -1}
}

// Bind replaces the current source. A nil or empty source leaves the
// navigator Empty; otherwise it is Bound at index 0. Caches are dropped.
func (n *Navigator) Bind(src Source, opts ...BindOption) {
	cfg := bindConfig{window: imaging.DefaultWindow}
	for _, opt := range opts {
		opt(&cfg)
	}

	n.src = src
	n.index = 0
	n.window = cfg.window.Normalized()
	n.frameIndex = -1
	n.frame = nil
	n.raster = nil

	if src == nil || src.Len() == 0 {
		n.state = Empty
		return
	}
	n.state = Bound
}

// State returns the current state.
func (n *Navigator) State() State { return n.state }

// Index returns the current 0-based slice index.
func (n *Navigator) Index() int { return n.index }

// Count returns the number of slices of the bound source, 0 when Empty.
func (n *Navigator) Count() int {
	if n.state != Bound {
		return 0
	}
	return n.src.Len()
}

// WindowLevel returns the window in effect.
func (n *Navigator) WindowLevel() imaging.WindowLevel { return n.window }

// Windowed reports whether window changes affect the bound source.
func (n *Navigator) Windowed() bool {
	_, ok := n.src.(FrameSource)
	return ok
}

// GoTo moves to slice i, clamped to the valid range, and renders it. The
// index moves even when decoding fails.
func (n *Navigator) GoTo(i int) (*imaging.RenderedSlice, error) {
	if n.state != Bound {
		return nil, ErrNotBound
	}
	n.index = clamp(i, 0, n.src.Len()-1)
	return n.Render()
}

// Step moves by delta slices with the same clamping as GoTo.
func (n *Navigator) Step(delta int) (*imaging.RenderedSlice, error) {
	if n.state != Bound {
		return nil, ErrNotBound
	}
	return n.GoTo(n.index + delta)
}

// SetWindowLevel replaces the window and re-renders the current slice.
// Width is raised to at least 1.
func (n *Navigator) SetWindowLevel(wl imaging.WindowLevel) (*imaging.RenderedSlice, error) {
	if n.state != Bound {
		return nil, ErrNotBound
	}
	n.window = wl.Normalized()
	return n.Render()
}

// Render returns the current slice under the current window. The returned
// raster belongs to the caller.
func (n *Navigator) Render() (*imaging.RenderedSlice, error) {
	if n.state != Bound {
		return nil, ErrNotBound
	}

	key := rasterKey{index: n.index, window: n.window}
	if _, ok := n.src.(RasterSource); ok {
		// Pre-rendered slices ignore the window.
		key.window = imaging.WindowLevel{}
	}
	if n.raster != nil && n.rasterKey == key {
		return clone(n.raster), nil
	}

	var (
		out *imaging.RenderedSlice
		err error
	)
	switch src := n.src.(type) {
	case FrameSource:
		out, err = n.renderFrame(src)
	case RasterSource:
		out, err = src.ReadRaster(n.index)
	default:
		err = fmt.Errorf("unsupported source %T", n.src)
	}
	if err != nil {
		return nil, fmt.Errorf("slice %d: %w", n.index+1, err)
	}

	n.rasterKey = key
	n.raster = out
	return clone(out), nil
}

// Frame returns a copy of the decoded samples of the current slice.
func (n *Navigator) Frame() (*dicom.RawFrame, error) {
	if n.state != Bound {
		return nil, ErrNotBound
	}
	src, ok := n.src.(FrameSource)
	if !ok {
		return nil, ErrNoSamples
	}
	if err := n.loadFrame(src); err != nil {
		return nil, fmt.Errorf("slice %d: %w", n.index+1, err)
	}
	samples := make([]int16, len(n.frame.Samples))
	copy(samples, n.frame.Samples)
	return &dicom.RawFrame{Geometry: n.frame.Geometry, Samples: samples}, nil
}

func (n *Navigator) loadFrame(src FrameSource) error {
	if n.frame != nil && n.frameIndex == n.index {
		return nil
	}
	f, err := src.ReadFrame(n.index)
	if err != nil {
		return err
	}
	n.frame, n.frameIndex = f, n.index
	return nil
}

func (n *Navigator) renderFrame(src FrameSource) (*imaging.RenderedSlice, error) {
	if err := n.loadFrame(src); err != nil {
		return nil, err
	}
	g := n.frame.Geometry
	return imaging.Render(n.frame.Samples, g.Columns, g.Rows, n.window)
}

func clone(s *imaging.RenderedSlice) *imaging.RenderedSlice {
	pix := make([]byte, len(s.Pix))
	copy(pix, s.Pix)
	return &imaging.RenderedSlice{Rows: s.Rows, Columns: s.Columns, Pix: pix}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

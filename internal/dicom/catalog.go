package dicom

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/suyashkumar/dicom"
)

// FrameSource is one entry of a series as seen by the catalog.
type FrameSource interface {
	// Ref is a stable reference to the encoded frame (a file path for
	// on-disk series). Its string order is the tie-breaker for ordering.
	Ref() string
	// OrderKey is the frame's instance number, 0 when unknown.
	OrderKey() int
}

// FrameRef is the catalog's immutable copy of a FrameSource.
type FrameRef struct {
	Ref      string
	OrderKey int
}

// SeriesDescriptor is an ordered, immutable set of frames.
type SeriesDescriptor struct {
	frames []FrameRef
}

// NewSeriesDescriptor orders sources by ascending order key, ties broken by
// reference order. Duplicate references keep the first occurrence.
func NewSeriesDescriptor(sources []FrameSource) *SeriesDescriptor {
	seen := make(map[string]bool, len(sources))
	frames := make([]FrameRef, 0, len(sources))
	for _, src := range sources {
		ref := src.Ref()
		if seen[ref] {
			log.Warn().Str("ref", ref).Msg("duplicate frame reference ignored")
			continue
		}
		seen[ref] = true
		frames = append(frames, FrameRef{Ref: ref, OrderKey: src.OrderKey()})
	}

	sort.SliceStable(frames, func(i, j int) bool {
		if frames[i].OrderKey != frames[j].OrderKey {
			return frames[i].OrderKey < frames[j].OrderKey
		}
		return frames[i].Ref < frames[j].Ref
	})

	return &SeriesDescriptor{frames: frames}
}

// Len returns the number of frames.
func (d *SeriesDescriptor) Len() int {
	if d == nil {
		return 0
	}
	return len(d.frames)
}

// Frame returns the i-th frame in series order.
func (d *SeriesDescriptor) Frame(i int) FrameRef {
	return d.frames[i]
}

// Frames returns a copy of the ordered frame list.
func (d *SeriesDescriptor) Frames() []FrameRef {
	if d == nil {
		return nil
	}
	out := make([]FrameRef, len(d.frames))
	copy(out, d.frames)
	return out
}

// SeriesProvider enumerates the frames stored at a location.
type SeriesProvider interface {
	ListFrameSources(ctx context.Context, location string) ([]FrameSource, error)
}

// fileSource is a FrameSource backed by a file on disk.
type fileSource struct {
	path     string
	orderKey int
}

func (f fileSource) Ref() string   { return f.path }
func (f fileSource) OrderKey() int { return f.orderKey }

// DirectoryProvider lists one-frame-per-file DICOM series in a flat directory.
type DirectoryProvider struct {
	// Pattern selects files inside the directory, case-insensitively
	// (default "*.dcm").
	Pattern string
}

// ListFrameSources implements SeriesProvider. Files are returned in path order.
func (p DirectoryProvider) ListFrameSources(ctx context.Context, location string) ([]FrameSource, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, location, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceUnavailable, location)
	}

	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, location, err)
	}

	pattern := strings.ToLower(p.Pattern)
	if pattern == "" {
		pattern = "*.dcm"
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, strings.ToLower(e.Name()))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if ok {
			paths = append(paths, filepath.Join(location, e.Name()))
		}
	}
	sort.Strings(paths)

	sources := make([]FrameSource, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sources = append(sources, fileSource{path: path, orderKey: ReadOrderKey(path)})
	}

	return sources, nil
}

// ReadOrderKey reads InstanceNumber without loading pixel data. Any failure
// degrades to 0.
func ReadOrderKey(path string) int {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		log.Debug().Str("path", path).Err(err).Msg("instance number unreadable, using 0")
		return 0
	}
	return orderKey(ds)
}

// LoadSeries enumerates location through provider and orders the result.
func LoadSeries(ctx context.Context, provider SeriesProvider, location string) (*SeriesDescriptor, error) {
	sources, err := provider.ListFrameSources(ctx, location)
	if err != nil {
		return nil, err
	}

	desc := NewSeriesDescriptor(sources)
	log.Info().Str("location", location).Int("frames", desc.Len()).Msg("series loaded")
	return desc, nil
}

// FrameReader reads and decodes catalog entries.
type FrameReader interface {
	ReadFrame(ref FrameRef) (*RawFrame, error)
}

// FileReader decodes catalog entries that reference DICOM files.
type FileReader struct{}

// ReadFrame parses and decodes the file behind ref.
func (FileReader) ReadFrame(ref FrameRef) (*RawFrame, error) {
	enc, err := ReadEncodedFrame(ref.Ref)
	if err != nil {
		return nil, &FrameError{Ref: ref.Ref, Err: err}
	}
	raw, err := enc.Decode()
	if err != nil {
		return nil, &FrameError{Ref: ref.Ref, Err: err}
	}
	return raw, nil
}

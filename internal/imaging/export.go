package imaging

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Format is a raster file format for exported slices.
type Format string

const (
	PNG  Format = "png"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// AllFormats returns the supported export formats.
func AllFormats() []Format {
	return []Format{PNG, BMP, TIFF}
}

// ParseFormat validates a format name (case-insensitive, "tif" accepted).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	return "", fmt.Errorf("invalid format %q, valid options: %v", s, AllFormats())
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	return string(f)
}

// SliceFileName returns the file name for 0-based slice index i: slice_0001.png, ...
func SliceFileName(i int, f Format) string {
	return fmt.Sprintf("slice_%04d.%s", i+1, f.Ext())
}

// Encode writes s in format f.
func Encode(w io.Writer, s *RenderedSlice, f Format) error {
	img := s.Gray()
	switch f {
	case PNG:
		return png.Encode(w, img)
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("invalid format %q", f)
}

// Decode reads a PNG, BMP or TIFF image as an 8-bit grayscale raster.
// Color inputs are converted with the standard luminance weights.
func Decode(r io.Reader) (*RenderedSlice, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), nil
}

// FromImage converts any image to a RenderedSlice.
func FromImage(img image.Image) *RenderedSlice {
	b := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok || gray.Stride != b.Dx() || b.Min != (image.Point{}) {
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	}
	return &RenderedSlice{Rows: b.Dy(), Columns: b.Dx(), Pix: gray.Pix}
}

// ReadFile decodes the raster stored at path.
func ReadFile(path string) (*RenderedSlice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Resize scales s to width x height. A nil interpolator means nearest
// neighbor, which keeps integer upscales exact.
func Resize(s *RenderedSlice, width, height int, interp draw.Interpolator) *RenderedSlice {
	if width == s.Columns && height == s.Rows {
		return s
	}
	if interp == nil {
		interp = draw.NearestNeighbor
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	interp.Scale(dst, dst.Bounds(), s.Gray(), image.Rect(0, 0, s.Columns, s.Rows), draw.Src, nil)
	return &RenderedSlice{Rows: height, Columns: width, Pix: dst.Pix}
}

// WriteFile encodes s to path, creating or truncating it.
func WriteFile(path string, s *RenderedSlice, f Format) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(out, s, f); err != nil {
		_ = out.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return out.Close()
}

// ExportOptions controls ExportSeries.
type ExportOptions struct {
	Format Format
	Scale  int // integer upscale factor, <= 1 keeps the native size

	Quiet            bool
	ProgressCallback func(current, total int)
}

// ExportSeries renders count slices through next and writes them into dir as
// slice_0001.<ext> ... in ascending index order. dir is created if absent.
func ExportSeries(ctx context.Context, dir string, count int, next func(i int) (*RenderedSlice, error), opts ExportOptions) ([]string, error) {
	if opts.Format == "" {
		opts.Format = PNG
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		s, err := next(i)
		if err != nil {
			return paths, fmt.Errorf("render slice %d: %w", i+1, err)
		}
		if opts.Scale > 1 {
			s = Resize(s, s.Columns*opts.Scale, s.Rows*opts.Scale, nil)
		}

		path := filepath.Join(dir, SliceFileName(i, opts.Format))
		if err := WriteFile(path, s, opts.Format); err != nil {
			return paths, err
		}
		paths = append(paths, path)

		if opts.ProgressCallback != nil {
			opts.ProgressCallback(i+1, count)
		}
		if !opts.Quiet && (i%20 == 0 || i+1 == count) {
			fmt.Printf("  Exported %d/%d\n", i+1, count)
		}
	}

	return paths, nil
}

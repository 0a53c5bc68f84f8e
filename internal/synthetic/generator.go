// Package synthetic produces deterministic, chest-CT-like sample fields used
// when no real series is available.
package synthetic

import (
	"fmt"
	"math"

	"github.com/mrsinham/dicomview/internal/dicom"
)

// Params describes one anatomy field. All coordinates are normalized: u and v
// run over [-1, 1] across the slice, z over [0, 1] through the volume.
type Params struct {
	LungShift     float64 // lateral lung offset at z=0, mirrored at z=1
	LungDivisor   float64 // horizontal extent of the lung ellipses
	BoneSharpness float64 // falloff of the rib ring around r²=0.45
	NoiseScale    float64
	NoiseOffsetU  float64
	NoiseOffsetV  float64

	BodyWeight  float64
	BoneWeight  float64
	NoiseWeight float64
	LungWeight  float64 // subtracted once per lung

	// Intensity 0 maps to MinValue and 1 to MaxValue.
	MinValue float64
	MaxValue float64

	// When PadOutsideFOV is set, samples outside the circular field of
	// view (u²+v² > 1) are written as PaddingValue.
	PadOutsideFOV bool
	PaddingValue  int16
}

// ChestCT is the field written to synthetic DICOM series, in Hounsfield-like
// units. Outside the reconstruction circle the scanner padding value is used.
var ChestCT = Params{
	LungShift:     0.12,
	LungDivisor:   0.22,
	BoneSharpness: 7,
	NoiseScale:    3.2,
	NoiseOffsetU:  1.3,
	NoiseOffsetV:  1.1,
	BodyWeight:    0.60,
	BoneWeight:    0.35,
	NoiseWeight:   0.10,
	LungWeight:    0.28,
	MinValue:      -1000,
	MaxValue:      800,
	PadOutsideFOV: true,
	PaddingValue:  -2048,
}

// Preview is the lighter in-viewer variant. Its range is chosen so that the
// default lung window shows the raw intensity unchanged.
var Preview = Params{
	LungShift:     0.15,
	LungDivisor:   0.25,
	BoneSharpness: 6,
	NoiseScale:    3.0,
	NoiseOffsetU:  1.2,
	NoiseOffsetV:  1.2,
	BodyWeight:    0.55,
	BoneWeight:    0.35,
	NoiseWeight:   0.12,
	LungWeight:    0.25,
	MinValue:      -1350,
	MaxValue:      150,
}

// Intensity returns the normalized field value at (u, v, z), in [0, 1].
func (p Params) Intensity(u, v, z float64) float64 {
	r2 := u*u + v*v
	body := clamp01(1 - r2*0.9)

	shift := lerp(-p.LungShift, p.LungShift, z)
	lungL := 1 - clamp01((u+0.35+shift)*(u+0.35+shift)/p.LungDivisor+v*v/0.40)
	lungR := 1 - clamp01((u-0.35+shift)*(u-0.35+shift)/p.LungDivisor+v*v/0.40)

	bone := clamp01(1 - math.Abs(r2-0.45)*p.BoneSharpness)
	n := Noise2D((u+p.NoiseOffsetU)*p.NoiseScale+z*2, (v+p.NoiseOffsetV)*p.NoiseScale+z*2)

	return clamp01(body*p.BodyWeight + bone*p.BoneWeight + n*p.NoiseWeight -
		(lungL*p.LungWeight + lungR*p.LungWeight))
}

// Slice generates one width x height slice of a sliceCount-deep volume,
// row-major. It returns nil when either dimension is not positive.
func (p Params) Slice(width, height, sliceIndex, sliceCount int) []int16 {
	if width <= 0 || height <= 0 {
		return nil
	}

	z := depth(sliceIndex, sliceCount)
	out := make([]int16, width*height)
	for y := 0; y < height; y++ {
		v := axis(y, height)
		for x := 0; x < width; x++ {
			u := axis(x, width)
			if p.PadOutsideFOV && u*u+v*v > 1 {
				out[y*width+x] = p.PaddingValue
				continue
			}
			value := lerp(p.MinValue, p.MaxValue, p.Intensity(u, v, z))
			out[y*width+x] = int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, value)))
		}
	}
	return out
}

// Generate returns slice sliceIndex of the synthetic chest volume. The result
// depends only on the four arguments.
func Generate(width, height, sliceIndex, sliceCount int) []int16 {
	return ChestCT.Slice(width, height, sliceIndex, sliceCount)
}

// depth is z = i/(n-1), or 0 for single-slice volumes.
func depth(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

// axis maps pixel i of n onto [-1, 1]. A one-pixel axis sits at the center.
func axis(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i)/float64(n-1)*2 - 1
}

// Source serves a synthetic volume frame by frame.
type Source struct {
	Params Params
	Width  int
	Height int
	Count  int
}

// NewSource returns a chest CT source of count width x height slices.
func NewSource(width, height, count int) *Source {
	return &Source{Params: ChestCT, Width: width, Height: height, Count: count}
}

// Len returns the number of slices.
func (s *Source) Len() int {
	if s.Count < 0 {
		return 0
	}
	return s.Count
}

// ReadFrame generates slice i.
func (s *Source) ReadFrame(i int) (*dicom.RawFrame, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: synthetic %dx%d", dicom.ErrInvalidGeometry, s.Width, s.Height)
	}
	if i < 0 || i >= s.Len() {
		return nil, fmt.Errorf("synthetic slice %d out of range [0, %d)", i, s.Len())
	}
	return &dicom.RawFrame{
		Geometry: dicom.FrameGeometry{
			Rows:                s.Height,
			Columns:             s.Width,
			BitsAllocated:       16,
			BitsStored:          16,
			HighBit:             15,
			PixelRepresentation: 1,
			SamplesPerPixel:     1,
		},
		Samples: s.Params.Slice(s.Width, s.Height, i, s.Count),
	}, nil
}

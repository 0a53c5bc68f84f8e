package synthetic

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/imaging"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(256, 256, 0, 120)
	b := Generate(256, 256, 0, 120)
	if len(a) != 256*256 {
		t.Fatalf("got %d samples, want %d", len(a), 256*256)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two calls differ (-first +second):\n%s", diff)
	}
	t.Logf("✓ %d samples identical across calls", len(a))
}

func TestGenerate_VariesWithDepth(t *testing.T) {
	first := Generate(64, 64, 0, 120)
	last := Generate(64, 64, 119, 120)
	if cmp.Equal(first, last) {
		t.Error("first and last slices should differ")
	}
}

func TestGenerate_Range(t *testing.T) {
	samples := Generate(128, 96, 60, 120)
	inFOV := 0
	for y := 0; y < 96; y++ {
		v := axis(y, 96)
		for x := 0; x < 128; x++ {
			u := axis(x, 128)
			s := samples[y*128+x]
			if u*u+v*v > 1 {
				if s != ChestCT.PaddingValue {
					t.Fatalf("(%d,%d) outside the field of view = %d, want padding", x, y, s)
				}
				continue
			}
			inFOV++
			if s < -1000 || s > 800 {
				t.Fatalf("(%d,%d) = %d outside [-1000, 800]", x, y, s)
			}
		}
	}
	if inFOV == 0 {
		t.Fatal("no samples inside the field of view")
	}
}

func TestGenerate_InvalidDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 10}, {10, 0}, {-1, -1}} {
		if got := Generate(dims[0], dims[1], 0, 3); got != nil {
			t.Errorf("Generate(%d, %d) = %d samples, want nil", dims[0], dims[1], len(got))
		}
	}
}

func TestGenerate_DegenerateInputs(t *testing.T) {
	// One pixel and one slice must not divide by zero.
	for _, s := range [][]int16{Generate(1, 1, 0, 1), Generate(1, 5, 3, 0), Generate(3, 1, 0, 1)} {
		for _, v := range s {
			if v < -1000 || v > 800 {
				t.Errorf("degenerate sample %d out of range", v)
			}
		}
	}
}

func TestIntensity_Range(t *testing.T) {
	for _, p := range []Params{ChestCT, Preview} {
		for u := -1.0; u <= 1.0; u += 0.05 {
			for v := -1.0; v <= 1.0; v += 0.05 {
				for _, z := range []float64{0, 0.5, 1} {
					if n := p.Intensity(u, v, z); n < 0 || n > 1 || math.IsNaN(n) {
						t.Fatalf("Intensity(%v, %v, %v) = %v", u, v, z, n)
					}
				}
			}
		}
	}
}

func TestNoise2D(t *testing.T) {
	if Noise2D(3.7, 1.2) != Noise2D(3.7, 1.2) {
		t.Error("Noise2D is not deterministic")
	}
	// Lattice points have zero gradient contribution.
	if n := Noise2D(5, 9); n != 0.5 {
		t.Errorf("Noise2D at a lattice point = %v, want 0.5", n)
	}

	prev := Noise2D(0.1, 0.1)
	varies := false
	for i := 1; i < 200; i++ {
		x := 0.1 + float64(i)*0.01
		n := Noise2D(x, 0.1)
		if n < 0 || n > 1 {
			t.Fatalf("Noise2D(%v, 0.1) = %v out of [0, 1]", x, n)
		}
		if math.Abs(n-prev) > 0.05 {
			t.Fatalf("Noise2D jumps by %v between neighbors at x=%v", math.Abs(n-prev), x)
		}
		if n != prev {
			varies = true
		}
		prev = n
	}
	if !varies {
		t.Error("Noise2D is constant")
	}
}

func TestSource_EndToEndRender(t *testing.T) {
	src := NewSource(256, 256, 3)
	raw, err := src.ReadFrame(0)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	out, err := imaging.Render(raw.Samples, raw.Geometry.Columns, raw.Geometry.Rows, imaging.DefaultWindow)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out.Columns != 256 || out.Rows != 256 {
		t.Fatalf("rendered %dx%d, want 256x256", out.Columns, out.Rows)
	}

	var black, white int
	for _, p := range out.Pix {
		switch p {
		case 0:
			black++
		case 255:
			white++
		}
	}
	if black == 0 || white == 0 {
		t.Errorf("expected saturated pixels at both ends, got %d black and %d white", black, white)
	}
	t.Logf("✓ %d black and %d white pixels under the lung window", black, white)
}

func TestSource_Errors(t *testing.T) {
	src := NewSource(0, 10, 3)
	if _, err := src.ReadFrame(0); !errors.Is(err, dicom.ErrInvalidGeometry) {
		t.Errorf("error = %v, want ErrInvalidGeometry", err)
	}
	src = NewSource(4, 4, 3)
	if _, err := src.ReadFrame(3); err == nil {
		t.Error("out of range slice should fail")
	}
	if raw, err := src.ReadFrame(2); err != nil || len(raw.Samples) != 16 || !raw.Geometry.Signed() {
		t.Errorf("ReadFrame(2) = %v, %v", raw, err)
	}
}

func TestWriteSeries(t *testing.T) {
	opts := SeriesOptions(t.TempDir())
	opts.Width, opts.Height, opts.NumSlices = 32, 32, 4
	opts.Quiet = true

	files, err := WriteSeries(context.Background(), ChestCT, opts)
	if err != nil {
		t.Fatalf("WriteSeries failed: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("wrote %d files, want 4", len(files))
	}

	desc, err := dicom.LoadSeries(context.Background(), dicom.DirectoryProvider{}, opts.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := dicom.FileReader{}.ReadFrame(desc.Frame(3))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if diff := cmp.Diff(ChestCT.Slice(32, 32, 3, 4), raw.Samples); diff != "" {
		t.Errorf("written samples differ from generated (-want +got):\n%s", diff)
	}
}

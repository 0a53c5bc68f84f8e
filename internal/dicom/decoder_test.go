package dicom

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func geom(rows, cols int) FrameGeometry {
	return FrameGeometry{
		Rows: rows, Columns: cols,
		BitsAllocated: 16, BitsStored: 16, HighBit: 15,
		PixelRepresentation: 1, SamplesPerPixel: 1,
	}
}

func TestDecodeFrame_LittleEndianSigned(t *testing.T) {
	data := []byte{
		0x01, 0x00, // 1
		0xFF, 0xFF, // -1
		0x18, 0xFC, // -1000
		0xFF, 0x7F, // 32767
		0x00, 0x80, // -32768
		0x20, 0x03, // 800
	}

	raw, err := DecodeFrame(geom(2, 3), data)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}

	want := []int16{1, -1, -1000, 32767, -32768, 800}
	if diff := cmp.Diff(want, raw.Samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(data, EncodeSamples(raw.Samples)); diff != "" {
		t.Errorf("EncodeSamples is not the inverse (-want +got):\n%s", diff)
	}
	t.Logf("✓ Decoded %d samples", len(raw.Samples))
}

func TestDecodeFrame_UnsignedBitPattern(t *testing.T) {
	g := geom(1, 1)
	g.PixelRepresentation = 0

	// 40000 unsigned is reinterpreted literally as a signed value.
	raw, err := DecodeFrame(g, []byte{0x40, 0x9C})
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if raw.Samples[0] != int16(-25536) {
		t.Errorf("sample = %d, want -25536", raw.Samples[0])
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	tests := []struct {
		name    string
		geom    FrameGeometry
		data    []byte
		wantErr error
	}{
		{"zero rows", geom(0, 4), nil, ErrInvalidGeometry},
		{"negative columns", geom(4, -1), make([]byte, 8), ErrInvalidGeometry},
		{"short buffer", geom(2, 2), make([]byte, 7), ErrTruncatedBuffer},
		{"long buffer", geom(2, 2), make([]byte, 10), ErrTruncatedBuffer},
		{"empty buffer", geom(2, 2), nil, ErrTruncatedBuffer},
		{"8-bit", func() FrameGeometry { g := geom(2, 2); g.BitsAllocated = 8; return g }(), make([]byte, 4), ErrUnsupportedFormat},
		{"rgb", func() FrameGeometry { g := geom(2, 2); g.SamplesPerPixel = 3; return g }(), make([]byte, 24), ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := DecodeFrame(tt.geom, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeFrame error = %v, want %v", err, tt.wantErr)
			}
			if raw != nil {
				t.Errorf("DecodeFrame returned a frame alongside an error")
			}
			t.Logf("✓ Got expected error: %v", err)
		})
	}
}

func TestDecodeFrame_GeometryCheckedBeforeLength(t *testing.T) {
	// Both geometry and length are wrong; geometry must win.
	_, err := DecodeFrame(geom(0, 0), []byte{1, 2, 3})
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("error = %v, want ErrInvalidGeometry", err)
	}
}

func TestFrameGeometry_MissingSamplesPerPixel(t *testing.T) {
	g := geom(1, 2)
	g.SamplesPerPixel = 0
	if err := g.Validate(); err != nil {
		t.Errorf("absent SamplesPerPixel should be accepted: %v", err)
	}
	if !g.Signed() || g.PixelCount() != 2 {
		t.Errorf("Signed()=%v PixelCount()=%d", g.Signed(), g.PixelCount())
	}
}

package dicom

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubSource struct {
	ref string
	key int
}

func (s stubSource) Ref() string   { return s.ref }
func (s stubSource) OrderKey() int { return s.key }

func refs(d *SeriesDescriptor) []string {
	var out []string
	for _, f := range d.Frames() {
		out = append(out, f.Ref)
	}
	return out
}

func TestNewSeriesDescriptor_Ordering(t *testing.T) {
	tests := []struct {
		name    string
		sources []FrameSource
		want    []string
	}{
		{
			name: "keys 3,1,2",
			sources: []FrameSource{
				stubSource{"a.dcm", 3},
				stubSource{"b.dcm", 1},
				stubSource{"c.dcm", 2},
			},
			want: []string{"b.dcm", "c.dcm", "a.dcm"},
		},
		{
			name: "keys 3,1,2 in reverse reference order",
			sources: []FrameSource{
				stubSource{"z.dcm", 2},
				stubSource{"y.dcm", 1},
				stubSource{"x.dcm", 3},
			},
			want: []string{"y.dcm", "z.dcm", "x.dcm"},
		},
		{
			name: "all keys missing keeps reference order",
			sources: []FrameSource{
				stubSource{"slice_0001.dcm", 0},
				stubSource{"slice_0002.dcm", 0},
				stubSource{"slice_0003.dcm", 0},
			},
			want: []string{"slice_0001.dcm", "slice_0002.dcm", "slice_0003.dcm"},
		},
		{
			name: "ties broken by reference",
			sources: []FrameSource{
				stubSource{"d.dcm", 1},
				stubSource{"c.dcm", 0},
				stubSource{"b.dcm", 1},
				stubSource{"a.dcm", 0},
			},
			want: []string{"a.dcm", "c.dcm", "b.dcm", "d.dcm"},
		},
		{
			name: "duplicates keep the first",
			sources: []FrameSource{
				stubSource{"a.dcm", 2},
				stubSource{"a.dcm", 1},
				stubSource{"b.dcm", 1},
			},
			want: []string{"b.dcm", "a.dcm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewSeriesDescriptor(tt.sources)
			if diff := cmp.Diff(tt.want, refs(d)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewSeriesDescriptor_Empty(t *testing.T) {
	d := NewSeriesDescriptor(nil)
	if d == nil || d.Len() != 0 {
		t.Fatalf("empty input should give an empty descriptor, got %v", d)
	}
	var nilDesc *SeriesDescriptor
	if nilDesc.Len() != 0 || nilDesc.Frames() != nil {
		t.Error("nil descriptor should behave as empty")
	}
}

func TestSeriesDescriptor_FramesIsCopy(t *testing.T) {
	d := NewSeriesDescriptor([]FrameSource{stubSource{"a.dcm", 1}})
	frames := d.Frames()
	frames[0].Ref = "mutated"
	if d.Frame(0).Ref != "a.dcm" {
		t.Error("descriptor was mutated through Frames()")
	}
}

func TestDirectoryProvider_Unavailable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, location := range []string{filepath.Join(dir, "missing"), file} {
		_, err := LoadSeries(context.Background(), DirectoryProvider{}, location)
		if !errors.Is(err, ErrSourceUnavailable) {
			t.Errorf("LoadSeries(%s) error = %v, want ErrSourceUnavailable", location, err)
		}
	}
}

func TestDirectoryProvider_EmptyAndUnparsable(t *testing.T) {
	dir := t.TempDir()

	desc, err := LoadSeries(context.Background(), DirectoryProvider{}, dir)
	if err != nil {
		t.Fatalf("empty directory should not fail: %v", err)
	}
	if desc.Len() != 0 {
		t.Errorf("Len() = %d, want 0", desc.Len())
	}

	// Files that are not DICOM still enter the catalog with order key 0.
	for _, name := range []string{"b.DCM", "a.dcm", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("garbage"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	desc, err = LoadSeries(context.Background(), DirectoryProvider{}, dir)
	if err != nil {
		t.Fatalf("LoadSeries failed: %v", err)
	}
	want := []FrameRef{
		{Ref: filepath.Join(dir, "a.dcm"), OrderKey: 0},
		{Ref: filepath.Join(dir, "b.DCM"), OrderKey: 0},
	}
	if diff := cmp.Diff(want, desc.Frames()); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}

	_, err = FileReader{}.ReadFrame(desc.Frame(0))
	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Ref != want[0].Ref {
		t.Errorf("ReadFrame error = %v, want FrameError for %s", err, want[0].Ref)
	}
}

func TestDirectoryProvider_Cancelled(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.dcm"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (DirectoryProvider{}).ListFrameSources(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

package viewer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/imaging"
)

// Source is anything a Navigator can bind: a FrameSource or a RasterSource.
type Source interface {
	Len() int
}

// FrameSource yields decoded samples that are windowed at render time.
type FrameSource interface {
	Source
	ReadFrame(i int) (*dicom.RawFrame, error)
}

// RasterSource yields slices that are already 8-bit. Window changes do not
// affect them.
type RasterSource interface {
	Source
	ReadRaster(i int) (*imaging.RenderedSlice, error)
}

// SeriesFrames serves frames of a cataloged DICOM series.
type SeriesFrames struct {
	Series *dicom.SeriesDescriptor
	Reader dicom.FrameReader
}

// NewSeriesFrames reads desc through dicom.FileReader.
func NewSeriesFrames(desc *dicom.SeriesDescriptor) *SeriesFrames {
	return &SeriesFrames{Series: desc, Reader: dicom.FileReader{}}
}

// Len returns the number of frames.
func (s *SeriesFrames) Len() int {
	return s.Series.Len()
}

// ReadFrame decodes frame i.
func (s *SeriesFrames) ReadFrame(i int) (*dicom.RawFrame, error) {
	return s.Reader.ReadFrame(s.Series.Frame(i))
}

// RasterStack is a stack of slice_NNNN raster files, local or remote.
type RasterStack struct {
	ctx    context.Context
	client *http.Client
	refs   []string
	remote bool
}

// OpenRasterDir lists the *.png files of dir in name order.
func OpenRasterDir(dir string) (*RasterStack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", dicom.ErrSourceUnavailable, dir, err)
	}

	var refs []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			refs = append(refs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(refs)
	return &RasterStack{refs: refs}, nil
}

// NewRemoteStack addresses count slices under baseURL by their fixed names,
// without listing. Fetches use ctx and client (nil = http.DefaultClient).
func NewRemoteStack(ctx context.Context, client *http.Client, baseURL string, count int) *RasterStack {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimRight(baseURL, "/")
	refs := make([]string, count)
	for i := range refs {
		refs[i] = base + "/" + imaging.SliceFileName(i, imaging.PNG)
	}
	return &RasterStack{ctx: ctx, client: client, refs: refs, remote: true}
}

// Len returns the number of slices.
func (s *RasterStack) Len() int {
	return len(s.refs)
}

// Ref returns the path or URL of slice i.
func (s *RasterStack) Ref(i int) string {
	return s.refs[i]
}

// ReadRaster loads slice i.
func (s *RasterStack) ReadRaster(i int) (*imaging.RenderedSlice, error) {
	ref := s.refs[i]
	if !s.remote {
		return imaging.ReadFile(ref)
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", ref, resp.Status)
	}
	return imaging.Decode(resp.Body)
}

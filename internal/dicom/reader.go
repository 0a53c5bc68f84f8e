package dicom

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// EncodedFrame is one parsed file before sample decoding: declared geometry,
// the raw little-endian PixelData bytes, and optional metadata. Files are
// single-frame; a multi-frame value fails DecodeFrame's length check.
type EncodedFrame struct {
	Path      string
	Geometry  FrameGeometry
	OrderKey  int
	Window    *imaging.WindowLevel // stored WindowCenter/WindowWidth, if any
	PatientID string
	PixelData []byte
}

// Decode runs DecodeFrame over the frame's bytes.
func (f *EncodedFrame) Decode() (*RawFrame, error) {
	return DecodeFrame(f.Geometry, f.PixelData)
}

// ReadEncodedFrame parses a single-frame DICOM file.
func ReadEncodedFrame(path string) (*EncodedFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	// Native pixel data is kept as raw bytes so DecodeFrame, not the parser,
	// judges geometry and buffer length.
	ds, err := dicom.Parse(f, info.Size(), nil, dicom.SkipProcessingPixelDataValue())
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w: %w", path, ErrTruncatedBuffer, err)
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return encodedFrameFromDataset(path, ds)
}

func encodedFrameFromDataset(path string, ds dicom.Dataset) (*EncodedFrame, error) {
	out := &EncodedFrame{
		Path:      path,
		Geometry:  geometryFromDataset(ds),
		OrderKey:  orderKey(ds),
		Window:    storedWindow(ds),
		PatientID: stringOr(ds, tag.PatientID, ""),
	}

	if ts, ok := LookupString(ds, tag.TransferSyntaxUID); ok && ts == explicitVRBigEndian {
		return nil, fmt.Errorf("%s: %w: big endian transfer syntax", path, ErrUnsupportedFormat)
	}

	data, err := pixelBytes(ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out.PixelData = data
	return out, nil
}

func geometryFromDataset(ds dicom.Dataset) FrameGeometry {
	return FrameGeometry{
		Rows:                intOr(ds, tag.Rows, 0),
		Columns:             intOr(ds, tag.Columns, 0),
		BitsAllocated:       intOr(ds, tag.BitsAllocated, 0),
		BitsStored:          intOr(ds, tag.BitsStored, 0),
		HighBit:             intOr(ds, tag.HighBit, 0),
		PixelRepresentation: intOr(ds, tag.PixelRepresentation, 0),
		SamplesPerPixel:     intOr(ds, tag.SamplesPerPixel, 1),
	}
}

// orderKey reads InstanceNumber; absent or unparsable means 0.
func orderKey(ds dicom.Dataset) int {
	return intOr(ds, tag.InstanceNumber, 0)
}

func storedWindow(ds dicom.Dataset) *imaging.WindowLevel {
	center, ok := LookupFloat(ds, tag.WindowCenter)
	if !ok {
		return nil
	}
	width, ok := LookupFloat(ds, tag.WindowWidth)
	if !ok {
		return nil
	}
	return &imaging.WindowLevel{Center: center, Width: width}
}

func stringOr(ds dicom.Dataset, t tag.Tag, def string) string {
	if v, ok := LookupString(ds, t); ok {
		return v
	}
	return def
}

// ReadStoredWindow returns the WindowCenter/WindowWidth stored in path, or
// nil when either is absent. Pixel data is not read.
func ReadStoredWindow(path string) (*imaging.WindowLevel, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return storedWindow(ds), nil
}

// pixelBytes returns the still-unprocessed native PixelData value. Its length
// is checked by DecodeFrame, after geometry.
func pixelBytes(ds dicom.Dataset) ([]byte, error) {
	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil || elem == nil {
		return nil, fmt.Errorf("%w: no pixel data", ErrTruncatedBuffer)
	}

	var info dicom.PixelDataInfo
	switch v := elem.Value.GetValue().(type) {
	case dicom.PixelDataInfo:
		info = v
	case *dicom.PixelDataInfo:
		info = *v
	default:
		return nil, fmt.Errorf("%w: pixel data value %T", ErrUnsupportedFormat, v)
	}

	if info.IsEncapsulated {
		return nil, fmt.Errorf("%w: encapsulated pixel data", ErrUnsupportedFormat)
	}
	if !info.IntentionallyUnprocessed {
		return nil, fmt.Errorf("%w: pixel data was decoded by the parser", ErrUnsupportedFormat)
	}
	return info.UnprocessedValueData, nil
}

package dicom

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/mrsinham/dicomview/internal/util"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	ctImageStorage      = "1.2.840.10008.5.1.4.1.1.2"
	explicitVRLittleEnd = "1.2.840.10008.1.2.1"
	explicitVRBigEndian = "1.2.840.10008.1.2.2"
)

// SampleFunc returns the samples of slice i of an n-slice volume.
type SampleFunc func(i, n int) []int16

// SeriesOptions contains all parameters needed to write a CT series.
type SeriesOptions struct {
	OutputDir string
	Width     int
	Height    int
	NumSlices int
	Samples   SampleFunc
	Workers   int // Number of parallel workers (0 = auto-detect based on CPU cores)

	PatientID         string
	PatientName       string
	PatientSex        string
	PatientAge        string
	StudyDescription  string
	SeriesDescription string
	StudyTime         time.Time // zero = now

	Window         imaging.WindowLevel
	PixelSpacing   float64 // mm, 0 = 1.0
	SliceThickness float64 // mm, 0 = 1.0

	// Custom tag overrides
	CustomTags util.ParsedTags

	// Output control
	Quiet            bool                     // Suppress progress output (for TUI integration)
	ProgressCallback func(current, total int) // Optional callback for progress updates
}

// WrittenFile describes one file produced by WriteSeries.
type WrittenFile struct {
	Path           string
	SOPInstanceUID string
	InstanceNumber int
}

type sliceTask struct {
	index    int
	filePath string
	metadata []*dicom.Element
}

// writeDatasetToFile writes a DICOM dataset to a file
func writeDatasetToFile(filename string, ds dicom.Dataset, opts ...dicom.WriteOption) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return dicom.Write(f, ds, opts...)
}

// WriteSeries writes one Explicit VR Little Endian file per slice,
// slice_0001.dcm onward, with InstanceNumber i+1. Samples are stored as
// signed 16-bit MONOCHROME2.
func WriteSeries(ctx context.Context, opts SeriesOptions) ([]WrittenFile, error) {
	if opts.NumSlices <= 0 {
		return nil, fmt.Errorf("number of slices must be > 0, got %d", opts.NumSlices)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, opts.Width, opts.Height)
	}
	if opts.Samples == nil {
		return nil, fmt.Errorf("no sample function")
	}
	if opts.PixelSpacing <= 0 {
		opts.PixelSpacing = 1
	}
	if opts.SliceThickness <= 0 {
		opts.SliceThickness = 1
	}
	if opts.StudyTime.IsZero() {
		opts.StudyTime = time.Now()
	}
	opts.Window = opts.Window.Normalized()

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	if !opts.Quiet {
		fmt.Printf("Resolution: %dx%d pixels per slice\n", opts.Width, opts.Height)
		fmt.Printf("Patient: %s (%s)\n", opts.PatientName, opts.PatientID)
	}

	// UIDs depend only on the output directory and patient, so rewriting a
	// series in place keeps its identity.
	uidSeed := opts.OutputDir + "_" + opts.PatientID
	studyUID := util.GenerateDeterministicUID(uidSeed + "_study")
	seriesUID := util.GenerateDeterministicUID(uidSeed + "_series")
	frameOfReferenceUID := util.GenerateDeterministicUID(uidSeed + "_frame")

	tasks := make([]sliceTask, opts.NumSlices)
	files := make([]WrittenFile, opts.NumSlices)
	for i := 0; i < opts.NumSlices; i++ {
		instance := i + 1
		sopInstanceUID := util.GenerateDeterministicUID(fmt.Sprintf("%s_instance_%d", uidSeed, instance))
		z := float64(i) * opts.SliceThickness

		metadata := []*dicom.Element{
			element(tag.TransferSyntaxUID, []string{explicitVRLittleEnd}),
			element(tag.SOPClassUID, []string{ctImageStorage}),
			element(tag.SOPInstanceUID, []string{sopInstanceUID}),
			element(tag.StudyInstanceUID, []string{studyUID}),
			element(tag.SeriesInstanceUID, []string{seriesUID}),
			element(tag.FrameOfReferenceUID, []string{frameOfReferenceUID}),
			element(tag.PatientID, []string{opts.PatientID}),
			element(tag.PatientName, []string{opts.PatientName}),
			element(tag.PatientSex, []string{opts.PatientSex}),
			element(tag.PatientAge, []string{opts.PatientAge}),
			element(tag.Modality, []string{"CT"}),
			element(tag.StudyDescription, []string{opts.StudyDescription}),
			element(tag.SeriesDescription, []string{opts.SeriesDescription}),
			element(tag.StudyDate, []string{opts.StudyTime.Format("20060102")}),
			element(tag.StudyTime, []string{opts.StudyTime.Format("150405")}),
			element(tag.SeriesNumber, []string{intToIS(1)}),
			element(tag.InstanceNumber, []string{intToIS(instance)}),
			element(tag.SliceThickness, []string{floatToDS(opts.SliceThickness)}),
			element(tag.PixelSpacing, []string{floatToDS(opts.PixelSpacing), floatToDS(opts.PixelSpacing)}),
			element(tag.ImagePositionPatient, []string{"0", "0", floatToDS(z)}),
			element(tag.ImageOrientationPatient, []string{"1", "0", "0", "0", "1", "0"}),
			element(tag.SliceLocation, []string{floatToDS(z)}),
			element(tag.Rows, []int{opts.Height}),
			element(tag.Columns, []int{opts.Width}),
			element(tag.SamplesPerPixel, []int{1}),
			element(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
			element(tag.BitsAllocated, []int{16}),
			element(tag.BitsStored, []int{16}),
			element(tag.HighBit, []int{15}),
			element(tag.PixelRepresentation, []int{1}),
			element(tag.RescaleIntercept, []string{"0"}),
			element(tag.RescaleSlope, []string{"1"}),
			element(tag.WindowCenter, []string{floatToDS(opts.Window.Center)}),
			element(tag.WindowWidth, []string{floatToDS(opts.Window.Width)}),
		}

		metadata, err := applyCustomTags(metadata, opts.CustomTags)
		if err != nil {
			return nil, err
		}

		path := filepath.Join(opts.OutputDir, fmt.Sprintf("slice_%04d.dcm", instance))
		tasks[i] = sliceTask{index: i, filePath: path, metadata: metadata}
		files[i] = WrittenFile{Path: path, SOPInstanceUID: sopInstanceUID, InstanceNumber: instance}
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	// Don't use more workers than tasks
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	if !opts.Quiet {
		fmt.Printf("Writing %d slices with %d parallel workers...\n", len(tasks), numWorkers)
	}

	taskChan := make(chan sliceTask, len(tasks))
	resultChan := make(chan struct {
		index int
		err   error
	}, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				err := ctx.Err()
				if err == nil {
					err = writeSlice(task, opts)
				}
				resultChan <- struct {
					index int
					err   error
				}{task.index, err}
			}
		}()
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	completed := 0
	var firstErr error
	for result := range resultChan {
		if result.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write slice %d: %w", result.index+1, result.err)
		}
		completed++
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(completed, len(tasks))
		}
		if !opts.Quiet && (completed%10 == 0 || completed == len(tasks)) {
			progress := float64(completed) / float64(len(tasks)) * 100
			fmt.Printf("  Progress: %d/%d (%.0f%%)\n", completed, len(tasks), progress)
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}

	if !opts.Quiet {
		fmt.Printf("\n✓ %d DICOM files created in: %s/\n", len(files), opts.OutputDir)
	}

	return files, nil
}

// writeSlice generates the samples for one task and writes its file.
func writeSlice(task sliceTask, opts SeriesOptions) error {
	samples := opts.Samples(task.index, opts.NumSlices)
	pixels := opts.Width * opts.Height
	if len(samples) != pixels {
		return fmt.Errorf("%w: %d samples for %dx%d",
			imaging.ErrGeometryMismatch, len(samples), opts.Width, opts.Height)
	}

	// Stored as the unsigned bit pattern; PixelRepresentation=1 marks it signed.
	nativeFrame := frame.NewNativeFrame[uint16](16, opts.Height, opts.Width, pixels, 1)
	for i, s := range samples {
		nativeFrame.RawData[i] = uint16(s)
	}

	pixelDataInfo := dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}

	elements := make([]*dicom.Element, len(task.metadata)+1)
	copy(elements, task.metadata)
	elements[len(task.metadata)] = element(tag.PixelData, pixelDataInfo)

	return writeDatasetToFile(task.filePath, dicom.Dataset{Elements: elements})
}

// applyCustomTags replaces or appends the user's tag overrides.
func applyCustomTags(elements []*dicom.Element, tags util.ParsedTags) ([]*dicom.Element, error) {
	for _, override := range tags.Sorted() {
		elem, err := dicom.NewElement(override.Info.Tag, []string{override.Value})
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", override.Info.Name, err)
		}
		replaced := false
		for i, e := range elements {
			if e.Tag == override.Info.Tag {
				elements[i] = elem
				replaced = true
				break
			}
		}
		if !replaced {
			elements = append(elements, elem)
		}
	}
	return elements, nil
}

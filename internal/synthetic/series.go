package synthetic

import (
	"context"

	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/imaging"
)

// Defaults of the demo chest series.
const (
	DefaultPatientID  = "P-1024"
	DefaultSliceCount = 120
	DefaultSize       = 256
)

// SeriesOptions returns writer options for the demo patient: a 120-slice
// 256x256 chest CT under a lung window.
func SeriesOptions(outputDir string) dicom.SeriesOptions {
	return dicom.SeriesOptions{
		OutputDir:         outputDir,
		Width:             DefaultSize,
		Height:            DefaultSize,
		NumSlices:         DefaultSliceCount,
		PatientID:         DefaultPatientID,
		PatientName:       "SYNTHETIC^PATIENT",
		PatientSex:        "M",
		PatientAge:        "058Y",
		StudyDescription:  "Synthetic Chest CT (Demo)",
		SeriesDescription: "Axial Slices",
		Window:            imaging.DefaultWindow,
		PixelSpacing:      1,
		SliceThickness:    1,
	}
}

// WriteSeries writes the volume described by p using opts. Any sample
// function already set in opts is replaced.
func WriteSeries(ctx context.Context, p Params, opts dicom.SeriesOptions) ([]dicom.WrittenFile, error) {
	width, height := opts.Width, opts.Height
	opts.Samples = func(i, n int) []int16 {
		return p.Slice(width, height, i, n)
	}
	return dicom.WriteSeries(ctx, opts)
}

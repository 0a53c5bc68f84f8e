// Package report loads the patient report that selects which series to show.
package report

import (
	"math"
	"strings"
)

// DefaultSeriesPath is used when a report names no series.
const DefaultSeriesPath = "DicomSeries/P-1024_SyntheticChestCT"

// UnknownPatientID is shown when a report carries no patient id.
const UnknownPatientID = "P-????"

// Report is a patient report as stored in JSON.
type Report struct {
	PatientID string      `json:"patientId"`
	Age       int         `json:"age"`
	Gender    string      `json:"gender"`
	Vitals    *Vitals     `json:"vitals,omitempty"`
	Labs      []LabResult `json:"labs,omitempty"`
	Imaging   *Imaging    `json:"imaging,omitempty"`
}

// Vitals holds time series of vital signs.
type Vitals struct {
	HeartRate     []float64       `json:"heartRate"`
	BloodPressure []BloodPressure `json:"bloodPressure"`
}

// BloodPressure is one systolic/diastolic reading in mmHg.
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// LabResult is a lab value with its normal range.
type LabResult struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	NormalMin float64 `json:"normalMin"`
	NormalMax float64 `json:"normalMax"`
}

// IsLow reports whether the value is below the normal range.
func (l LabResult) IsLow() bool { return l.Value < l.NormalMin }

// IsHigh reports whether the value is above the normal range.
func (l LabResult) IsHigh() bool { return l.Value > l.NormalMax }

// IsAbnormal reports whether the value is outside the normal range.
func (l LabResult) IsAbnormal() bool { return l.IsLow() || l.IsHigh() }

// Flag returns "L", "H" or "" for display.
func (l LabResult) Flag() string {
	switch {
	case l.IsLow():
		return "L"
	case l.IsHigh():
		return "H"
	}
	return ""
}

// Imaging is the imaging section of a report.
type Imaging struct {
	CTSlices        int      `json:"ctSlices"`
	DicomSeriesPath string   `json:"dicomSeriesPath"`
	Findings        []string `json:"findings"`
}

// SeriesRequest is what the viewer needs from a report to bind a series.
type SeriesRequest struct {
	PatientID      string
	Findings       []string
	SeriesLocation string
	ExpectedSlices int // 0 when unknown
}

// SeriesRequest extracts the fields used to select a series. Missing values
// fall back to UnknownPatientID and DefaultSeriesPath. A nil report is valid.
func (r *Report) SeriesRequest() SeriesRequest {
	req := SeriesRequest{
		PatientID:      UnknownPatientID,
		SeriesLocation: DefaultSeriesPath,
	}
	if r == nil {
		return req
	}
	if id := strings.TrimSpace(r.PatientID); id != "" {
		req.PatientID = id
	}
	if r.Imaging != nil {
		req.Findings = r.Imaging.Findings
		if p := strings.TrimSpace(r.Imaging.DicomSeriesPath); p != "" {
			req.SeriesLocation = p
		}
		if r.Imaging.CTSlices > 0 {
			req.ExpectedSlices = r.Imaging.CTSlices
		}
	}
	return req
}

// AbnormalLabs returns the labs outside their normal range, in report order.
func (r *Report) AbnormalLabs() []LabResult {
	var out []LabResult
	for _, l := range r.Labs {
		if l.IsAbnormal() {
			out = append(out, l)
		}
	}
	return out
}

// Range is the min and max of a series. Ok is false for an empty series.
type Range struct {
	Min, Max float64
	Ok       bool
}

// RangeOf returns the range of values.
func RangeOf(values []float64) Range {
	if len(values) == 0 {
		return Range{}
	}
	r := Range{Min: math.Inf(1), Max: math.Inf(-1), Ok: true}
	for _, v := range values {
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	return r
}

// Split returns systolic and diastolic values as separate series.
func (v *Vitals) Split() (systolic, diastolic []float64) {
	if v == nil {
		return nil, nil
	}
	for _, bp := range v.BloodPressure {
		systolic = append(systolic, bp.Systolic)
		diastolic = append(diastolic, bp.Diastolic)
	}
	return systolic, diastolic
}

package util

import (
	"strings"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestGetTagByName(t *testing.T) {
	tests := []struct {
		input string
		name  string
		tag   tag.Tag
		vr    VR
	}{
		{"PatientName", "PatientName", tag.PatientName, VRPersonName},
		{"patientid", "PatientID", tag.PatientID, VRLongString},
		{"PATIENTBIRTHDATE", "PatientBirthDate", tag.PatientBirthDate, VRDate},
		{"PatientAge", "PatientAge", tag.PatientAge, VRAgeString},
		{" InstitutionName ", "InstitutionName", tag.InstitutionName, VRLongString},
		{"stationname", "StationName", tag.StationName, VRShortString},
		{"BodyPartExamined", "BodyPartExamined", tag.BodyPartExamined, VRCodeString},
		{"windowcenter", "WindowCenter", tag.WindowCenter, VRDecimal},
		{"WINDOWWIDTH", "WindowWidth", tag.WindowWidth, VRDecimal},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			info, err := GetTagByName(tc.input)
			if err != nil {
				t.Fatalf("GetTagByName(%q) returned error: %v", tc.input, err)
			}
			if info.Name != tc.name || info.Tag != tc.tag || info.VR != tc.vr {
				t.Errorf("GetTagByName(%q) = %s %v %s, want %s %v %s",
					tc.input, info.Name, info.Tag, info.VR, tc.name, tc.tag, tc.vr)
			}
		})
	}
}

func TestGetTagByName_Unknown(t *testing.T) {
	tests := []struct {
		input   string
		wantMsg string
	}{
		{"PatinetName", `did you mean "PatientName"`},
		{"StudyDescripton", `did you mean "StudyDescription"`},
		{"Manufacurer", `did you mean "Manufacturer"`},
		{"WindowCentre", `did you mean "WindowCenter"`},
		{"", "valid tags:"},
		{"PixelDataOverride", "unknown tag"},
		// Geometry is written from the options, never overridden.
		{"Rows", "unknown tag"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			_, err := GetTagByName(tc.input)
			if err == nil {
				t.Fatalf("GetTagByName(%q) should fail", tc.input)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q should contain %q", err, tc.wantMsg)
			}
		})
	}
}

func TestTagNames(t *testing.T) {
	names := TagNames()
	if len(names) != len(overridable) {
		t.Fatalf("TagNames() returned %d names, want %d", len(names), len(overridable))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
	t.Logf("✓ %d overridable tags", len(names))
}

func TestVR_Validate(t *testing.T) {
	tests := []struct {
		vr    VR
		value string
		ok    bool
	}{
		{VRPersonName, "DOE^JANE", true},
		{VRPersonName, "A^B^C^D^E^F", false},
		{VRLongString, "CHU Bordeaux", true},
		{VRLongString, strings.Repeat("x", 65), false},
		{VRShortString, "CT01", true},
		{VRShortString, strings.Repeat("x", 17), false},
		{VRCodeString, "CHEST", true},
		{VRCodeString, "chest", false},
		{VRDate, "19660402", true},
		{VRDate, "19661302", false},
		{VRAgeString, "058Y", true},
		{VRAgeString, "58Y", false},
		{VRDecimal, "-600", true},
		{VRDecimal, "1.5e3", true},
		{VRDecimal, "wide", false},
		{VRLongString, `a\b`, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.vr)+"_"+tc.value, func(t *testing.T) {
			err := tc.vr.Validate(tc.value)
			if (err == nil) != tc.ok {
				t.Errorf("%s.Validate(%q) = %v, want ok=%v", tc.vr, tc.value, err, tc.ok)
			}
		})
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"windowcentre", "windowcenter", 2},
		{"patinetname", "patientname", 2},
	}

	for _, tc := range tests {
		if got := editDistance(tc.a, tc.b); got != tc.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

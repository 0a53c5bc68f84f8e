// Package util provides tag overrides and UID helpers for the series writer.
package util

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// VR is the DICOM value representation of an overridable tag. Only the
// string representations the series writer emits are listed.
type VR string

const (
	VRPersonName  VR = "PN"
	VRLongString  VR = "LO"
	VRShortString VR = "SH"
	VRCodeString  VR = "CS"
	VRDate        VR = "DA"
	VRAgeString   VR = "AS"
	VRDecimal     VR = "DS"
)

var (
	codeString = regexp.MustCompile(`^[A-Z0-9_ ]*$`)
	ageString  = regexp.MustCompile(`^[0-9]{3}[DWMY]$`)
)

// Validate checks value against the length and character rules of v.
func (v VR) Validate(value string) error {
	if strings.ContainsRune(value, '\\') {
		return fmt.Errorf("multiple values are not supported")
	}

	switch v {
	case VRPersonName:
		if len(value) > 64 {
			return fmt.Errorf("person name longer than 64 characters")
		}
		if strings.Count(value, "^") > 4 {
			return fmt.Errorf("person name has more than 5 components")
		}
	case VRLongString:
		if len(value) > 64 {
			return fmt.Errorf("longer than 64 characters")
		}
	case VRShortString:
		if len(value) > 16 {
			return fmt.Errorf("longer than 16 characters")
		}
	case VRCodeString:
		if len(value) > 16 || !codeString.MatchString(value) {
			return fmt.Errorf("code strings are at most 16 upper-case letters, digits, spaces or underscores")
		}
	case VRDate:
		if _, err := time.Parse("20060102", value); err != nil {
			return fmt.Errorf("dates are written YYYYMMDD")
		}
	case VRAgeString:
		if !ageString.MatchString(value) {
			return fmt.Errorf("ages are written nnnD, nnnW, nnnM or nnnY")
		}
	case VRDecimal:
		if len(value) > 16 {
			return fmt.Errorf("decimal strings are at most 16 characters")
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("not a decimal number")
		}
	}
	return nil
}

// TagInfo describes a tag that --tag can override.
type TagInfo struct {
	Name string
	Tag  tag.Tag
	VR   VR
}

// overridable lists the tags in the order they appear in a written file.
var overridable = []TagInfo{
	{"InstitutionName", tag.InstitutionName, VRLongString},
	{"ReferringPhysicianName", tag.ReferringPhysicianName, VRPersonName},
	{"StationName", tag.StationName, VRShortString},
	{"AccessionNumber", tag.AccessionNumber, VRShortString},
	{"StudyDescription", tag.StudyDescription, VRLongString},
	{"SeriesDescription", tag.SeriesDescription, VRLongString},
	{"Manufacturer", tag.Manufacturer, VRLongString},
	{"ManufacturerModelName", tag.ManufacturerModelName, VRLongString},
	{"PatientName", tag.PatientName, VRPersonName},
	{"PatientID", tag.PatientID, VRLongString},
	{"PatientBirthDate", tag.PatientBirthDate, VRDate},
	{"PatientSex", tag.PatientSex, VRCodeString},
	{"PatientAge", tag.PatientAge, VRAgeString},
	{"BodyPartExamined", tag.BodyPartExamined, VRCodeString},
	{"ProtocolName", tag.ProtocolName, VRLongString},
	{"StudyID", tag.StudyID, VRShortString},
	{"WindowCenter", tag.WindowCenter, VRDecimal},
	{"WindowWidth", tag.WindowWidth, VRDecimal},
}

// byName indexes overridable by lower-case name.
var byName = func() map[string]TagInfo {
	m := make(map[string]TagInfo, len(overridable))
	for _, info := range overridable {
		m[strings.ToLower(info.Name)] = info
	}
	return m
}()

// TagNames returns the canonical names of all overridable tags, sorted.
func TagNames() []string {
	names := make([]string, len(overridable))
	for i, info := range overridable {
		names[i] = info.Name
	}
	sort.Strings(names)
	return names
}

// GetTagByName looks a tag up case-insensitively. An unknown name is
// reported with the closest known name when one is near enough.
func GetTagByName(name string) (TagInfo, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if info, ok := byName[key]; ok {
		return info, nil
	}
	if suggestion := closestTagName(key); suggestion != "" {
		return TagInfo{}, fmt.Errorf("unknown tag %q, did you mean %q?", name, suggestion)
	}
	return TagInfo{}, fmt.Errorf("unknown tag %q, valid tags: %s", name, strings.Join(TagNames(), ", "))
}

// maxSuggestDistance bounds the edit distance of a suggestion.
const maxSuggestDistance = 5

func closestTagName(key string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, info := range overridable {
		if d := editDistance(key, strings.ToLower(info.Name)); d < bestDist {
			best, bestDist = info.Name, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between a and b, computed over
// bytes with two rolling rows.
func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub++
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

package dicom

import (
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// LookupString returns the first string value of t, if present.
func LookupString(ds dicom.Dataset, t tag.Tag) (string, bool) {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return "", false
	}

	switch v := elem.Value.GetValue().(type) {
	case []string:
		if len(v) == 0 {
			return "", false
		}
		return strings.Trim(v[0], " \x00"), true
	case []int:
		if len(v) == 0 {
			return "", false
		}
		return strconv.Itoa(v[0]), true
	}
	return "", false
}

// LookupInt returns the first value of t as an int. It accepts binary
// integer VRs (US, SS, UL, SL) as well as IS/DS strings. A missing tag or an
// unparsable value yields ok=false so callers can apply their own default.
func LookupInt(ds dicom.Dataset, t tag.Tag) (int, bool) {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return 0, false
	}

	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) == 0 {
			return 0, false
		}
		return v[0], true
	case []string:
		if len(v) == 0 {
			return 0, false
		}
		s := strings.TrimSpace(v[0])
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		// IS values written by some tools carry a decimal part.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

// LookupFloat returns the first value of a DS tag as float64.
func LookupFloat(ds dicom.Dataset, t tag.Tag) (float64, bool) {
	s, ok := LookupString(ds, t)
	if !ok {
		return 0, false
	}
	// Multi-valued DS come through as "a\b" on some writers.
	if i := strings.IndexByte(s, '\\'); i >= 0 {
		s = s[:i]
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// intOr is LookupInt with a default.
func intOr(ds dicom.Dataset, t tag.Tag, def int) int {
	if v, ok := LookupInt(ds, t); ok {
		return v
	}
	return def
}

package dicom

import (
	"fmt"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// element builds one writer element. Values come from typed series options,
// so a failure means the tag and Go type disagree and panics.
func element(t tag.Tag, value any) *dicom.Element {
	e, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("dicom element %v: %v", t, err))
	}
	return e
}

// floatToDS formats f as a Decimal String, at most 6 significant digits so
// the 16-byte limit always holds.
func floatToDS(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func intToIS(i int) string {
	return strconv.Itoa(i)
}

package util

import (
	"hash/fnv"
	"math/big"
)

// uidRoot is the UUID-derived root (ITU-T X.667), which allows a 128-bit
// integer suffix without registering an organization root.
const uidRoot = "2.25."

// GenerateDeterministicUID derives a valid DICOM UID from seed. The same
// seed always yields the same UID.
func GenerateDeterministicUID(seed string) string {
	h := fnv.New128a()
	_, _ = h.Write([]byte(seed)) // hash.Write never returns an error
	n := new(big.Int).SetBytes(h.Sum(nil))
	return uidRoot + n.String()
}

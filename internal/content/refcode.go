package content

import (
	"fmt"
	"regexp"
)

// Reference code prefixes.
const (
	InquiryPrefix     = "AKP-"
	ApplicationPrefix = "APP-"
)

const (
	refCodeMin  = 100000
	refCodeSpan = 900000
)

var refCodePattern = regexp.MustCompile(`^[A-Z]+-[1-9][0-9]{5}$`)

// NewReferenceCode returns prefix followed by a six-digit number drawn with
// intn. Codes are random, not reserved: two submissions can share one.
func NewReferenceCode(prefix string, intn func(int) int) string {
	return fmt.Sprintf("%s%06d", prefix, refCodeMin+intn(refCodeSpan))
}

// IsReferenceCode reports whether s has the reference-code shape.
func IsReferenceCode(s string) bool {
	return refCodePattern.MatchString(s)
}

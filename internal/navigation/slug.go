package navigation

import (
	"regexp"
	"strings"
)

// slugPattern matches every non-empty Slugify result.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Slugify lowercases s, collapses every run of characters outside [a-z0-9]
// into a single hyphen and strips leading and trailing hyphens.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// IsSlug reports whether s has the shape Slugify produces.
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

package sanitizer

import (
	"strings"
	"unicode"
)

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName cleans a booking display name: control characters removed,
// whitespace runs collapsed to one space, ends trimmed.
func NormalizeName(name string) string {
	p := Pipeline{
		dropControl,
		collapseSpace,
	}
	return p.Apply(name)
}

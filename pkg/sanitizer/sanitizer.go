package sanitizer

import (
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func trimAndLower(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return s
}

func stripBraces(s string) string {
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// SanitizeIdentifier normalizes record identifiers such as work order and
// resource ids. It does not escape anything: ids are compared and substituted
// as they come out of this pipeline.
func SanitizeIdentifier(input string) string {
	p := Pipeline{
		trimAndLower,
		stripBraces,
	}
	return p.Apply(input)
}

// SanitizeOptionalIdentifier applies SanitizeIdentifier through a pointer,
// leaving nil untouched so absent fields stay absent.
func SanitizeOptionalIdentifier(input *string) *string {
	if input == nil {
		return nil
	}
	s := SanitizeIdentifier(*input)
	return &s
}

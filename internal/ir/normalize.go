package ir

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText returns the NFC form of s. Fingerprints are computed over
// normalized text so that canonically equivalent sources hash identically.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}

// SortedAttrs returns a copy of attrs ordered by key.
// The input slice is not modified.
func SortedAttrs(attrs []Attr) []Attr {
	out := slices.Clone(attrs)
	slices.SortFunc(out, func(a, b Attr) int {
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

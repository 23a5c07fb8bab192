package ir

import (
	"slices"
	"strings"
)

// Capability records that a specific transform has run on a document.
type Capability string

// Built-in capabilities provided by the family transforms.
const (
	CapLinksChecked      Capability = "LinksChecked"
	CapLinksResolved     Capability = "LinksResolved"
	CapSvgOptimized      Capability = "SvgOptimized"
	CapHeadingsProcessed Capability = "HeadingsProcessed"
	CapMediaProcessed    Capability = "MediaProcessed"
	CapMetadataExtracted Capability = "MetadataExtracted"
)

// CapabilitySet is an immutable, sorted set of capabilities.
// The zero value is the empty set. There is no removal operation: sets only
// grow through With and Union.
type CapabilitySet struct {
	caps []Capability
}

// NewCapabilitySet builds a set from caps. Empty tokens are ignored.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	return CapabilitySet{}.With(caps...)
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := slices.BinarySearch(s.caps, c)
	return ok
}

// HasAll reports whether every capability in cs is present.
func (s CapabilitySet) HasAll(cs ...Capability) bool {
	return len(s.Missing(cs...)) == 0
}

// Missing returns the capabilities of cs that are absent, in input order.
func (s CapabilitySet) Missing(cs ...Capability) []Capability {
	var out []Capability
	for _, c := range cs {
		if !s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// With returns a new set containing s plus caps.
func (s CapabilitySet) With(caps ...Capability) CapabilitySet {
	out := slices.Clone(s.caps)
	for _, c := range caps {
		if c == "" {
			continue
		}
		if i, ok := slices.BinarySearch(out, c); !ok {
			out = slices.Insert(out, i, c)
		}
	}
	return CapabilitySet{caps: out}
}

// Union returns s ∪ other.
func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	return s.With(other.caps...)
}

// Contains reports whether other ⊆ s.
func (s CapabilitySet) Contains(other CapabilitySet) bool {
	return s.HasAll(other.caps...)
}

// Len returns the number of capabilities.
func (s CapabilitySet) Len() int { return len(s.caps) }

// List returns the capabilities in sorted order.
func (s CapabilitySet) List() []Capability { return slices.Clone(s.caps) }

// String renders the set as "{A, B}".
func (s CapabilitySet) String() string {
	parts := make([]string, len(s.caps))
	for i, c := range s.caps {
		parts[i] = string(c)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

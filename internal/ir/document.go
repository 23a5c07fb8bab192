package ir

import "fmt"

// Document is an owned, rooted tree tagged with its phase.
//
// Phase and capabilities are unexported: the only way to obtain a document
// in a later phase, or with more capabilities, is Advance. Transforms in the
// pipeline return new roots, never documents.
type Document struct {
	// Path is the logical page path the document was parsed from.
	Path string

	// Seed is the page seed mixed into every StructuralID. Zero until the
	// document is indexed.
	Seed PageSeed

	// Root is the root element.
	Root *Node

	phase Phase
	caps  CapabilitySet
}

// NewRaw wraps a parsed tree as a Raw document.
func NewRaw(path string, root *Node) *Document {
	return &Document{Path: path, Root: root, phase: PhaseRaw}
}

// Phase returns the document's phase.
func (d *Document) Phase() Phase { return d.phase }

// Capabilities returns the capabilities recorded on the document.
// Raw documents always report the empty set.
func (d *Document) Capabilities() CapabilitySet { return d.caps }

// Clone returns a deep copy with the same phase and capabilities.
func (d *Document) Clone() *Document {
	c := *d
	c.Root = d.Root.Clone()
	return &c
}

// Advance is the phase transition function. It builds a new document over
// root at phase to, carrying the input's capabilities plus grant.
//
// Advance refuses to move backwards, to leave the terminal Rendered phase,
// to grant capabilities to a Raw document, and to promote a tree whose root
// has no identity into a phase that requires one. The input document is not
// modified and may be dropped or retained by the caller.
func Advance(d *Document, root *Node, to Phase, grant ...Capability) (*Document, error) {
	if d == nil {
		return nil, fmt.Errorf("advance: nil document")
	}
	if root == nil {
		return nil, fmt.Errorf("%w: advance: nil root", ErrMalformed)
	}
	if !to.Valid() {
		return nil, &PhaseError{Op: "advance", Got: to}
	}
	if d.phase.Terminal() || to < d.phase {
		return nil, &PhaseError{Op: "advance", Got: d.phase, Want: to}
	}
	if to == PhaseRaw && len(grant) > 0 {
		return nil, &PhaseError{Op: "grant", Got: to, Want: PhaseIndexed}
	}
	if to.HasIdentity() && root.Fingerprint.IsZero() {
		return nil, fmt.Errorf("%w: advance to %s: root has no fingerprint", ErrMalformed, to)
	}
	return &Document{
		Path:  d.Path,
		Seed:  d.Seed,
		Root:  root,
		phase: to,
		caps:  d.caps.With(grant...),
	}, nil
}

// Rebuild derives a document in the same phase with the same capabilities
// over a different root. Used when a tree is patched rather than
// transformed.
func Rebuild(d *Document, root *Node) *Document {
	c := *d
	c.Root = root
	return &c
}

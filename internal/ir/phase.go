package ir

import "fmt"

// Phase is a document's position in the processing lattice:
//
//	Raw < Indexed < Processed < Rendered
//
// A document's phase is fixed at construction. Moving forward builds a new
// document through Advance; nothing moves backwards.
type Phase uint8

const (
	// PhaseRaw documents come straight from the parser: no ids, no families.
	PhaseRaw Phase = iota + 1

	// PhaseIndexed documents carry StructuralID, Fingerprint and Family on
	// every node. They are cacheable and diffable.
	PhaseIndexed

	// PhaseProcessed documents have had family/content transforms applied
	// and carry family payloads.
	PhaseProcessed

	// PhaseRendered is terminal and owned by the renderer.
	PhaseRendered
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseRaw:
		return "raw"
	case PhaseIndexed:
		return "indexed"
	case PhaseProcessed:
		return "processed"
	case PhaseRendered:
		return "rendered"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	return p >= PhaseRaw && p <= PhaseRendered
}

// HasIdentity reports whether documents in this phase carry ids and
// fingerprints.
func (p Phase) HasIdentity() bool {
	return p >= PhaseIndexed && p <= PhaseRendered
}

// Terminal reports whether no transition may leave this phase.
func (p Phase) Terminal() bool {
	return p == PhaseRendered
}

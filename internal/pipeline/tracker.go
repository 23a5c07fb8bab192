package pipeline

import (
	"fmt"

	"github.com/roach88/vtree/internal/ir"
)

// Check decides whether a transform may run on doc.
//
// The document must be in the descriptor's input phase (PHASE_MISMATCH)
// and must carry every required capability (PIPELINE_ORDER, listing what
// is missing). Check never modifies doc.
func Check(doc *ir.Document, d Descriptor) error {
	if err := d.validate(); err != nil {
		return &Error{Code: ErrCodePhase, Message: err.Error(), Transform: d.Name, Step: -1}
	}
	if doc.Phase() != d.Input {
		return newPhaseError(d, doc.Phase())
	}
	if missing := doc.Capabilities().Missing(d.Requires...); len(missing) > 0 {
		return newOrderError(d, missing)
	}
	return nil
}

// Transition derives the document that follows a successful step: root at
// the descriptor's output phase, with the input's capabilities plus the
// provided one.
func Transition(doc *ir.Document, d Descriptor, root *ir.Node) (*ir.Document, error) {
	next, err := ir.Advance(doc, root, d.Output, d.Provides)
	if err != nil {
		return nil, fmt.Errorf("transition %s: %w", d.Name, err)
	}
	return next, nil
}

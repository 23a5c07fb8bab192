package ir

import (
	"errors"
	"fmt"
)

// ErrMalformed reports an input tree that violates the node invariants.
// It is a parser-side problem; indexing refuses such trees.
var ErrMalformed = errors.New("malformed input")

// ErrPhaseMismatch is the sentinel matched by every *PhaseError.
var ErrPhaseMismatch = errors.New("phase mismatch")

// PhaseError reports an operation invoked on a document in the wrong phase,
// or an illegal phase transition.
type PhaseError struct {
	// Op names the rejected operation ("diff", "advance", "encode", ...).
	Op string

	// Got is the phase that was supplied.
	Got Phase

	// Want is the phase that was required. Zero when the rule is not a
	// single phase (e.g. "both documents must share a phase").
	Want Phase

	// Other is the phase of the second document, for binary operations.
	Other Phase
}

// Error implements the error interface.
func (e *PhaseError) Error() string {
	switch {
	case e.Other != 0:
		return fmt.Sprintf("PHASE_MISMATCH: %s: %s vs %s", e.Op, e.Got, e.Other)
	case e.Want != 0:
		return fmt.Sprintf("PHASE_MISMATCH: %s: got %s, want %s", e.Op, e.Got, e.Want)
	default:
		return fmt.Sprintf("PHASE_MISMATCH: %s: phase %s not allowed", e.Op, e.Got)
	}
}

// Is lets errors.Is(err, ErrPhaseMismatch) match any PhaseError.
func (e *PhaseError) Is(target error) bool {
	return target == ErrPhaseMismatch
}

// IsPhaseError returns true if err is or wraps a *PhaseError.
func IsPhaseError(err error) bool {
	var pe *PhaseError
	return errors.As(err, &pe)
}

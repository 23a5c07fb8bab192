package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/vtree/internal/ir"
)

// ErrorCode categorizes pipeline failures.
type ErrorCode string

const (
	// ErrCodeOrder indicates a transform ran before the transforms that
	// provide its required capabilities.
	ErrCodeOrder ErrorCode = "PIPELINE_ORDER"

	// ErrCodePhase indicates a transform was given a document in the wrong
	// phase, or declared an impossible transition.
	ErrCodePhase ErrorCode = "PHASE_MISMATCH"

	// ErrCodeTransform indicates the transform itself returned an error, or
	// returned a tree that could not be re-identified.
	ErrCodeTransform ErrorCode = "TRANSFORM_FAILED"

	// ErrCodeCanceled indicates the run observed a canceled context.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Error is a failed pipeline run or a failed static check.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Transform names the step that failed.
	Transform string

	// Step is the zero-based index of the failing step, -1 when unknown.
	Step int

	// RunID identifies the run. Empty for static checks.
	RunID string

	// Missing lists the required capabilities that were absent
	// (PIPELINE_ORDER only).
	Missing []ir.Capability

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Transform != "" && e.RunID != "" {
		fmt.Fprintf(&b, " (transform=%s, run=%s)", e.Transform, e.RunID)
	} else if e.Transform != "" {
		fmt.Fprintf(&b, " (transform=%s)", e.Transform)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func codeOf(err error) (ErrorCode, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// IsOrderError returns true if err is a PIPELINE_ORDER error.
func IsOrderError(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeOrder
}

// IsPhaseMismatch returns true if err is a PHASE_MISMATCH pipeline error.
func IsPhaseMismatch(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodePhase
}

// IsTransformFailed returns true if err is a TRANSFORM_FAILED error.
func IsTransformFailed(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeTransform
}

// IsCanceled returns true if err is a CANCELED error.
func IsCanceled(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeCanceled
}

func newOrderError(d Descriptor, missing []ir.Capability) *Error {
	names := make([]string, len(missing))
	for i, c := range missing {
		names[i] = string(c)
	}
	return &Error{
		Code:      ErrCodeOrder,
		Message:   fmt.Sprintf("missing required capabilities [%s]", strings.Join(names, ", ")),
		Transform: d.Name,
		Step:      -1,
		Missing:   missing,
	}
}

func newPhaseError(d Descriptor, got ir.Phase) *Error {
	return &Error{
		Code:      ErrCodePhase,
		Message:   fmt.Sprintf("document is %s, transform expects %s", got, d.Input),
		Transform: d.Name,
		Step:      -1,
		Err:       &ir.PhaseError{Op: d.Name, Got: got, Want: d.Input},
	}
}

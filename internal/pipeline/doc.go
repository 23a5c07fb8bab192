// Package pipeline runs ordered document transforms under phase and
// capability checks.
//
// A transform declares what it needs (an input phase and a set of required
// capabilities) and what it yields (an output phase and at most one
// provided capability). The pipeline checks the declaration before every
// step, and derives the next document itself through ir.Advance. Transforms
// only ever return a tree; they cannot construct a document, so a transform
// cannot claim a phase it did not reach or a capability it did not provide.
//
// After every step the returned tree is re-identified (StructuralID,
// Fingerprint, Family) before the transition, so each intermediate document
// satisfies the identity invariants of an indexed tree.
//
// Failure model:
//   - A step whose requirements are not met fails with PIPELINE_ORDER or
//     PHASE_MISMATCH before it runs.
//   - A transform error aborts the run with TRANSFORM_FAILED.
//   - Cancellation is observed before and after every step; the in-flight
//     document is discarded and no capability is granted.
//
// In every failure case the caller receives no partial document.
package pipeline

// Package diff computes patch lists between two versions of a document and
// applies them.
//
// Matching starts at the roots, which always match when both documents
// share a page seed. For every matched pair whose fingerprints differ, the
// children are reconciled in two passes:
//
//  1. Content pass: new children are paired with unmatched old children of
//     equal fingerprint. Among duplicates the old child closest to the new
//     child's index wins; equal distances go to the earlier old child.
//  2. Slot pass: remaining children are paired by StructuralID.
//
// Pairs whose new indices, read in old order, form a longest increasing
// subsequence keep their place; every other pair gets a Move. Unpaired old
// children are removed and unpaired new children inserted. Pairs with
// different fingerprints are then diffed recursively: Replace when kind, tag
// or family differ, otherwise UpdateText or UpdateAttrs plus child
// reconciliation.
//
// Operations name nodes by their StructuralID in the old document. Insert
// and Move positions are indices in the parent's final child list, so a
// patch is applied per parent as one batch rather than op by op.
package diff

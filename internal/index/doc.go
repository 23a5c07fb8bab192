// Package index assigns identities to documents: the Raw → Indexed phase
// transition.
//
// A single depth-first traversal gives every node:
//   - a StructuralID derived from (kind key, ordinal among same-kind
//     siblings, parent id, page seed), assigned on the way down;
//   - a Family, looked up once per element in the caller's FamilyTable;
//   - a Fingerprint over its own normalized content and its children's
//     fingerprints, assigned on the way up (post-order).
//
// Siblings of different tags do not share an ordinal counter, so inserting a
// <p> between two <div>s leaves both <div> identities unchanged. Content
// never enters a StructuralID, so editing a leaf changes fingerprints along
// its ancestor chain but no identity anywhere.
package index

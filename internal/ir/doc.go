// Package ir provides the document model shared by every vtree package.
//
// This package contains the tree types, identity primitives, phases and
// capabilities. All other internal packages import ir; ir imports nothing
// internal. This keeps the model the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Documents are owned trees: a node has exactly one parent and no
//     back-reference to it. Parent lookups go through IndexByID.
//   - StructuralID depends on position and ancestry only, never on content.
//   - Fingerprint depends on content only, never on position.
//   - Phase and capabilities are not fields a transform can set. They change
//     only through Advance, which refuses to move backwards or drop a
//     capability.
//   - Hashes are SHA-256 with domain separation, so persisted identities are
//     stable across processes and machines.
package ir

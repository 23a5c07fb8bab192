// Package harness runs diff scenarios: pairs of page versions declared in
// YAML, with assertions on the resulting patch and golden snapshots of it.
//
// # Scenario Format
//
//	name: heading_edit
//	description: "Editing a heading emits one text update"
//	path: /docs/intro          # page path, default "/"
//	fragment: true             # parse as a body fragment
//	process: true              # run the default family pipeline first
//	families: families.cue     # custom families, relative to the scenario
//	options:
//	  reload_threshold: 0.5
//	  max_ops: 500
//	old: "<h1>Hello</h1>"
//	new: "<h1>World</h1>"
//	assertions:
//	  - type: reload
//	    reload: false
//	  - type: op_count
//	    count: 1
//	  - type: op_kinds
//	    kinds: [update_text]
//	  - type: contains_op
//	    op: 'update_text /body/h1[0]/#text[0] "World"'
//
// # Slot Paths
//
// Patch targets are StructuralIDs, which are opaque. Reports and golden
// files name them by slot path instead: the root tag, then one
// "tag[ordinal]" step per level, where the ordinal counts preceding
// siblings with the same tag ("#text" for text nodes). Targets and parents
// are resolved in the old document, inserted subtrees are printed as HTML.
//
// # Round Trip
//
// Every scenario whose result is a patch also checks that applying the
// patch to the old document reproduces the new one, ids and fingerprints
// included. A mismatch fails the scenario.
package harness

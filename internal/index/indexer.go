package index

import (
	"fmt"
	"log/slog"

	"github.com/roach88/vtree/internal/ir"
)

// Indexer is the identity assigner. It is stateless between calls and safe
// for concurrent use.
type Indexer struct {
	table  ir.FamilyTable
	logger *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) {
		ix.logger = l
	}
}

// New creates an Indexer classifying elements with table.
func New(table ir.FamilyTable, opts ...Option) *Indexer {
	ix := &Indexer{table: table, logger: slog.Default()}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Index consumes a Raw document and returns its Indexed counterpart.
// The input is not modified. Fails only on a wrong phase or a malformed tree.
func (ix *Indexer) Index(raw *ir.Document, seed ir.PageSeed) (*ir.Document, error) {
	if raw == nil {
		return nil, fmt.Errorf("index: nil document")
	}
	if raw.Phase() != ir.PhaseRaw {
		return nil, &ir.PhaseError{Op: "index", Got: raw.Phase(), Want: ir.PhaseRaw}
	}
	if err := raw.Root.Validate(); err != nil {
		return nil, fmt.Errorf("index %s: %w", raw.Path, err)
	}

	root := raw.Root.Clone()
	ix.assign(root, seed, ir.RootID(seed))

	seeded := *raw
	seeded.Seed = seed
	doc, err := ir.Advance(&seeded, root, ir.PhaseIndexed)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", raw.Path, err)
	}

	ix.logger.Debug("document indexed",
		"path", raw.Path,
		"seed", seed.String(),
		"root_fingerprint", root.Fingerprint.Short(),
	)
	return doc, nil
}

// Refresh recomputes identities for a tree that replaces doc's root, using
// doc's seed. The tree is cloned first: transforms may return roots that
// share subtrees with their input, and the input must stay untouched.
//
// Payloads whose family no longer matches the element's family are dropped.
func (ix *Indexer) Refresh(doc *ir.Document, root *ir.Node) (*ir.Node, error) {
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("refresh %s: %w", doc.Path, err)
	}
	out := root.Clone()
	ix.assign(out, doc.Seed, ir.RootID(doc.Seed))
	return out, nil
}

// assign sets n's identity and recurses. Ids flow down, fingerprints up.
func (ix *Indexer) assign(n *ir.Node, seed ir.PageSeed, id ir.StructuralID) {
	n.ID = id
	if n.Kind == ir.KindElement {
		n.Family = ix.table.Classify(n.Tag, n.Attrs)
	} else {
		n.Family = ""
	}
	if n.Data != nil && n.Data.Family() != n.Family {
		n.Data = nil
	}

	ordinals := make(map[string]int, len(n.Children))
	for _, c := range n.Children {
		key := c.KindKey()
		ix.assign(c, seed, ir.ChildID(seed, id, key, ordinals[key]))
		ordinals[key]++
	}

	n.Fingerprint = ir.NodeFingerprint(n)
}

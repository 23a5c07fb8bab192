package diff

import (
	"errors"
	"fmt"

	"github.com/roach88/vtree/internal/ir"
)

var (
	// ErrUnknownTarget reports an op naming a StructuralID absent from the
	// document.
	ErrUnknownTarget = errors.New("unknown patch target")

	// ErrInvalidPatch reports an op that cannot apply to its target, or
	// positions that do not fit the parent's final child list.
	ErrInvalidPatch = errors.New("invalid patch")
)

// placement collects the children a parent receives at fixed positions.
type placement struct {
	at map[int]*ir.Node
}

// Apply applies ops to a copy of doc and returns the patched document in
// the same phase. doc is not modified.
//
// In-place ops (UpdateText, UpdateAttrs, Replace) apply first. Then every
// parent touched by Insert, Move or Remove gets its final child list:
// placed children at their positions, remaining children filling the gaps
// in their original order. Finally identities are recomputed, so applying
// Diff(prev, next) to prev reproduces next's ids and fingerprints.
func Apply(doc *ir.Document, ops []Op) (*ir.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("apply: nil document")
	}
	if !doc.Phase().HasIdentity() {
		return nil, &ir.PhaseError{Op: "apply", Got: doc.Phase(), Want: ir.PhaseIndexed}
	}

	root := doc.Root.Clone()
	nodes, parents := ir.IndexByID(root)
	lookup := func(id ir.StructuralID) (*ir.Node, error) {
		n, ok := nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, id)
		}
		return n, nil
	}

	plans := make(map[*ir.Node]*placement)
	var order []*ir.Node
	plan := func(p *ir.Node) *placement {
		pl, ok := plans[p]
		if !ok {
			pl = &placement{at: make(map[int]*ir.Node)}
			plans[p] = pl
			order = append(order, p)
		}
		return pl
	}
	place := func(p *ir.Node, pos int, n *ir.Node) error {
		if !p.IsElement() {
			return fmt.Errorf("%w: %s is not an element", ErrInvalidPatch, p.ID)
		}
		pl := plan(p)
		if _, taken := pl.at[pos]; taken {
			return fmt.Errorf("%w: position %d of %s placed twice", ErrInvalidPatch, pos, p.ID)
		}
		pl.at[pos] = n
		return nil
	}
	detached := make(map[*ir.Node]bool)
	detach := func(id ir.StructuralID, n *ir.Node) error {
		p := parents[id]
		if p == nil {
			return fmt.Errorf("%w: cannot detach the root", ErrInvalidPatch)
		}
		if detached[n] {
			return fmt.Errorf("%w: %s detached twice", ErrInvalidPatch, id)
		}
		detached[n] = true
		plan(p)
		return nil
	}

	for i, op := range ops {
		if err := applyOne(op, lookup, place, detach); err != nil {
			return nil, fmt.Errorf("apply op %d (%s): %w", i, op.Kind(), err)
		}
	}

	for _, p := range order {
		if err := rebuild(p, plans[p], detached); err != nil {
			return nil, fmt.Errorf("apply: %w", err)
		}
	}

	ir.AssignIDs(root, doc.Seed)
	ir.Rehash(root)
	return ir.Rebuild(doc, root), nil
}

func applyOne(
	op Op,
	lookup func(ir.StructuralID) (*ir.Node, error),
	place func(*ir.Node, int, *ir.Node) error,
	detach func(ir.StructuralID, *ir.Node) error,
) error {
	switch o := op.(type) {
	case UpdateText:
		n, err := lookup(o.Target)
		if err != nil {
			return err
		}
		if !n.IsText() {
			return fmt.Errorf("%w: %s is not a text node", ErrInvalidPatch, o.Target)
		}
		n.Text = o.Text

	case UpdateAttrs:
		n, err := lookup(o.Target)
		if err != nil {
			return err
		}
		if !n.IsElement() {
			return fmt.Errorf("%w: %s is not an element", ErrInvalidPatch, o.Target)
		}
		for _, c := range o.Changes {
			if c.Removed {
				n.RemoveAttr(c.Key)
			} else {
				n.SetAttr(c.Key, c.Value)
			}
		}

	case Replace:
		n, err := lookup(o.Target)
		if err != nil {
			return err
		}
		if o.Subtree == nil {
			return fmt.Errorf("%w: replace %s with nil subtree", ErrInvalidPatch, o.Target)
		}
		*n = *o.Subtree.Clone()

	case Remove:
		n, err := lookup(o.Target)
		if err != nil {
			return err
		}
		return detach(o.Target, n)

	case Move:
		n, err := lookup(o.Target)
		if err != nil {
			return err
		}
		p, err := lookup(o.Parent)
		if err != nil {
			return err
		}
		if err := detach(o.Target, n); err != nil {
			return err
		}
		return place(p, o.Position, n)

	case Insert:
		if o.Subtree == nil {
			return fmt.Errorf("%w: insert nil subtree", ErrInvalidPatch)
		}
		p, err := lookup(o.Parent)
		if err != nil {
			return err
		}
		return place(p, o.Position, o.Subtree.Clone())

	default:
		return fmt.Errorf("%w: unknown op %T", ErrInvalidPatch, op)
	}
	return nil
}

// rebuild computes p's final child list.
func rebuild(p *ir.Node, pl *placement, detached map[*ir.Node]bool) error {
	var rest []*ir.Node
	for _, c := range p.Children {
		if !detached[c] {
			rest = append(rest, c)
		}
	}
	// A node moved into its own parent is both detached and placed.
	total := len(rest) + len(pl.at)
	out := make([]*ir.Node, total)
	for pos, n := range pl.at {
		if pos < 0 || pos >= total {
			return fmt.Errorf("%w: position %d out of range for %s (%d children)", ErrInvalidPatch, pos, p.ID, total)
		}
		out[pos] = n
	}
	k := 0
	for i := range out {
		if out[i] == nil {
			out[i] = rest[k]
			k++
		}
	}
	p.Children = out
	return nil
}

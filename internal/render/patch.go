package render

import (
	"fmt"

	"github.com/roach88/vtree/internal/diff"
)

// WireOp is the JSON form of a patch operation. Ids are hex strings and
// subtrees travel as HTML carrying their data-vid attributes.
type WireOp struct {
	Op       diff.OpKind       `json:"op"`
	Target   string            `json:"target,omitempty"`
	Parent   string            `json:"parent,omitempty"`
	Position *int              `json:"position,omitempty"`
	HTML     string            `json:"html,omitempty"`
	Text     *string           `json:"text,omitempty"`
	Changes  []diff.AttrChange `json:"changes,omitempty"`
}

// WireOps converts ops to their wire form.
func WireOps(ops []diff.Op) ([]WireOp, error) {
	out := make([]WireOp, 0, len(ops))
	for i, op := range ops {
		w, err := wireOp(op)
		if err != nil {
			return nil, fmt.Errorf("encode op %d: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func wireOp(op diff.Op) (WireOp, error) {
	w := WireOp{Op: op.Kind()}
	ids := Options{EmitIDs: true}
	switch o := op.(type) {
	case diff.Insert:
		s, err := HTML(o.Subtree, ids)
		if err != nil {
			return w, err
		}
		pos := o.Position
		w.Parent, w.Position, w.HTML = o.Parent.String(), &pos, s
	case diff.Remove:
		w.Target = o.Target.String()
	case diff.Replace:
		s, err := HTML(o.Subtree, ids)
		if err != nil {
			return w, err
		}
		w.Target, w.HTML = o.Target.String(), s
	case diff.UpdateAttrs:
		w.Target, w.Changes = o.Target.String(), o.Changes
	case diff.UpdateText:
		text := o.Text
		w.Target, w.Text = o.Target.String(), &text
	case diff.Move:
		pos := o.Position
		w.Target, w.Parent, w.Position = o.Target.String(), o.Parent.String(), &pos
	default:
		return w, fmt.Errorf("unknown op %T", op)
	}
	return w, nil
}

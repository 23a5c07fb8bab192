package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/vtree/internal/diff"
	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/render"
)

// SlotPaths maps every StructuralID under root to its slot path.
func SlotPaths(root *ir.Node) map[ir.StructuralID]string {
	out := make(map[ir.StructuralID]string)
	var visit func(n *ir.Node, path string)
	visit = func(n *ir.Node, path string) {
		out[n.ID] = path
		ordinals := make(map[string]int, len(n.Children))
		for _, c := range n.Children {
			key := c.KindKey()
			visit(c, path+"/"+key+"["+strconv.Itoa(ordinals[key])+"]")
			ordinals[key]++
		}
	}
	if root != nil {
		visit(root, "/"+root.KindKey())
	}
	return out
}

// FormatOp renders op with slot paths from paths. Unknown ids print as
// raw StructuralIDs.
func FormatOp(op diff.Op, paths map[ir.StructuralID]string) string {
	p := func(id ir.StructuralID) string {
		if s, ok := paths[id]; ok {
			return s
		}
		return id.String()
	}
	switch op := op.(type) {
	case diff.Insert:
		return fmt.Sprintf("insert %s @%d %s", p(op.Parent), op.Position, subtreeHTML(op.Subtree))
	case diff.Remove:
		return "remove " + p(op.Target)
	case diff.Replace:
		return fmt.Sprintf("replace %s %s", p(op.Target), subtreeHTML(op.Subtree))
	case diff.UpdateAttrs:
		parts := make([]string, len(op.Changes))
		for i, c := range op.Changes {
			if c.Removed {
				parts[i] = "-" + c.Key
			} else {
				parts[i] = fmt.Sprintf("%s=%q", c.Key, c.Value)
			}
		}
		return fmt.Sprintf("update_attrs %s %s", p(op.Target), strings.Join(parts, " "))
	case diff.UpdateText:
		return fmt.Sprintf("update_text %s %q", p(op.Target), op.Text)
	case diff.Move:
		return fmt.Sprintf("move %s -> %s @%d", p(op.Target), p(op.Parent), op.Position)
	default:
		return fmt.Sprintf("%v", op)
	}
}

func subtreeHTML(n *ir.Node) string {
	s, err := render.HTML(n, render.Options{})
	if err != nil {
		return "<!" + err.Error() + ">"
	}
	return s
}

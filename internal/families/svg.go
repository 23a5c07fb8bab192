package families

import (
	"context"
	"strings"

	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/pipeline"
)

// Editor namespaces stripped from inline svg.
var editorPrefixes = []string{"inkscape:", "sodipodi:", "sketch:", "xmlns:inkscape", "xmlns:sodipodi", "xmlns:sketch"}

// SvgOptimizer strips editor cruft from inline svg: metadata elements,
// editor-namespaced elements and attributes, whitespace-only text and
// empty groups.
type SvgOptimizer struct{}

// Descriptor implements pipeline.Transform.
func (SvgOptimizer) Descriptor() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:     "svg-optimizer",
		Provides: ir.CapSvgOptimized,
		Input:    ir.PhaseIndexed,
		Output:   ir.PhaseIndexed,
	}
}

// Apply implements pipeline.Transform.
func (SvgOptimizer) Apply(ctx context.Context, doc *ir.Document) (*ir.Node, error) {
	changed := false
	for _, svg := range elements(doc.Root, ir.FamilySvg) {
		changed = optimizeSvg(svg) || changed
	}
	if !changed {
		return nil, nil
	}
	return doc.Root, nil
}

func optimizeSvg(n *ir.Node) bool {
	changed := false
	for i := 0; i < len(n.Attrs); {
		if editorName(n.Attrs[i].Key) {
			n.RemoveAttr(n.Attrs[i].Key)
			changed = true
			continue
		}
		i++
	}

	kept := n.Children[:0]
	for _, c := range n.Children {
		if c.IsElement() {
			changed = optimizeSvg(c) || changed
		}
		if droppable(n, c) {
			changed = true
			continue
		}
		kept = append(kept, c)
	}
	clear(n.Children[len(kept):])
	n.Children = kept
	return changed
}

func droppable(parent, n *ir.Node) bool {
	if n.IsText() {
		return parent.Tag != "text" && parent.Tag != "tspan" && strings.TrimSpace(n.Text) == ""
	}
	switch {
	case n.Tag == "metadata", editorName(n.Tag):
		return true
	case n.Tag == "g" || n.Tag == "defs":
		return len(n.Children) == 0 && len(n.Attrs) == 0
	}
	return false
}

func editorName(name string) bool {
	for _, p := range editorPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

package index

import "github.com/roach88/vtree/internal/ir"

// Stats summarises an indexed tree.
type Stats struct {
	Elements int               `json:"elements"`
	Texts    int               `json:"texts"`
	ByFamily map[ir.Family]int `json:"by_family"`
}

// Nodes returns the total node count.
func (s Stats) Nodes() int { return s.Elements + s.Texts }

// Summarize counts the nodes of doc by kind and family.
func Summarize(doc *ir.Document) Stats {
	s := Stats{ByFamily: make(map[ir.Family]int)}
	if doc == nil || doc.Root == nil {
		return s
	}
	doc.Root.Walk(func(n *ir.Node) bool {
		if n.IsText() {
			s.Texts++
			return true
		}
		s.Elements++
		if n.Family != "" {
			s.ByFamily[n.Family]++
		}
		return true
	})
	return s
}

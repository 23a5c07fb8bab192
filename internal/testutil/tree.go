// Package testutil holds builders shared by package tests.
package testutil

import (
	"fmt"

	"github.com/roach88/vtree/internal/ir"
)

// A is shorthand for an attribute.
func A(key, value string) ir.Attr {
	return ir.Attr{Key: key, Value: value}
}

// El builds a raw element. Parts may be ir.Attr, *ir.Node, or string
// (a text child).
//
//	El("div", A("class", "x"), El("h1", "Title"), El("p", "Body"))
func El(tag string, parts ...any) *ir.Node {
	var attrs []ir.Attr
	var children []*ir.Node
	for _, p := range parts {
		switch v := p.(type) {
		case ir.Attr:
			attrs = append(attrs, v)
		case *ir.Node:
			children = append(children, v)
		case string:
			children = append(children, ir.NewText(v))
		default:
			panic(fmt.Sprintf("testutil.El: unsupported part %T", p))
		}
	}
	return ir.NewElement(tag, attrs, children...)
}

// T builds a raw text node.
func T(text string) *ir.Node {
	return ir.NewText(text)
}

// Raw wraps root as a raw document for path.
func Raw(path string, root *ir.Node) *ir.Document {
	return ir.NewRaw(path, root)
}

// IDs returns the StructuralIDs of the subtree in pre-order.
func IDs(n *ir.Node) []ir.StructuralID {
	var out []ir.StructuralID
	n.Walk(func(c *ir.Node) bool {
		out = append(out, c.ID)
		return true
	})
	return out
}

// Fingerprints returns the fingerprints of the subtree in pre-order.
func Fingerprints(n *ir.Node) []ir.Fingerprint {
	var out []ir.Fingerprint
	n.Walk(func(c *ir.Node) bool {
		out = append(out, c.Fingerprint)
		return true
	})
	return out
}

// Find returns the first node in pre-order satisfying pred, or nil.
func Find(n *ir.Node, pred func(*ir.Node) bool) *ir.Node {
	var found *ir.Node
	n.Walk(func(c *ir.Node) bool {
		if found != nil {
			return false
		}
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindTag returns the first element with tag, or nil.
func FindTag(n *ir.Node, tag string) *ir.Node {
	return Find(n, func(c *ir.Node) bool { return c.IsElement() && c.Tag == tag })
}

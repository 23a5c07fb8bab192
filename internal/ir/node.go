package ir

import (
	"fmt"
	"slices"
	"strings"
)

// NodeKind distinguishes the two node variants.
type NodeKind uint8

const (
	// KindElement is a tagged element with attributes and children.
	KindElement NodeKind = iota + 1

	// KindText is a text payload with no children.
	KindText
)

// TextKindKey is the kind key used for text nodes when counting sibling
// ordinals. It cannot collide with an element tag.
const TextKindKey = "#text"

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Attr is one element attribute. Keys are unique within an element.
type Attr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Node is an element or a text node.
//
// Raw nodes carry only Kind, Tag, Attrs, Children and Text. Indexing fills
// ID, Fingerprint and Family; the Processed phase may attach Data.
type Node struct {
	Kind     NodeKind
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string

	Family      Family
	ID          StructuralID
	Fingerprint Fingerprint

	// Data is the family payload attached when the document is processed.
	Data FamilyData
}

// NewElement creates a raw element. Duplicate attribute keys keep the first
// occurrence, matching HTML parsing rules.
func NewElement(tag string, attrs []Attr, children ...*Node) *Node {
	n := &Node{Kind: KindElement, Tag: tag, Children: children}
	for _, a := range attrs {
		if _, ok := n.Attr(a.Key); !ok {
			n.Attrs = append(n.Attrs, a)
		}
	}
	return n
}

// NewText creates a raw text node.
func NewText(text string) *Node {
	return &Node{Kind: KindText, Text: text}
}

// IsElement reports whether n is an element.
func (n *Node) IsElement() bool { return n.Kind == KindElement }

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.Kind == KindText }

// KindKey is the key used to count sibling ordinals: the tag for elements,
// TextKindKey for text.
func (n *Node) KindKey() string {
	if n.Kind == KindText {
		return TextKindKey
	}
	return n.Tag
}

// Attr returns the value of key and whether it is present.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets key to value, appending it if absent. Returns true if the
// element changed.
func (n *Node) SetAttr(key, value string) bool {
	for i := range n.Attrs {
		if n.Attrs[i].Key == key {
			if n.Attrs[i].Value == value {
				return false
			}
			n.Attrs[i].Value = value
			return true
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Value: value})
	return true
}

// RemoveAttr deletes key. Returns true if it was present.
func (n *Node) RemoveAttr(key string) bool {
	for i := range n.Attrs {
		if n.Attrs[i].Key == key {
			n.Attrs = slices.Delete(n.Attrs, i, i+1)
			return true
		}
	}
	return false
}

// ElementChildren returns the element children of n in order.
func (n *Node) ElementChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == KindElement {
			out = append(out, c)
		}
	}
	return out
}

// TextContent concatenates all descendant text in document order.
func (n *Node) TextContent() string {
	if n.Kind == KindText {
		return n.Text
	}
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Kind == KindText {
			b.WriteString(c.Text)
		}
		return true
	})
	return b.String()
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Clone returns a deep copy of the subtree. Family payloads are shared:
// FamilyData values are immutable by contract.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Attrs = slices.Clone(n.Attrs)
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Equal reports whether a and b are structurally equal: same kinds, tags,
// attributes (in any order), text and children. Identities and payloads are
// ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Tag != b.Tag || a.Text != b.Text {
		return false
	}
	if !slices.Equal(SortedAttrs(a.Attrs), SortedAttrs(b.Attrs)) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants every tree must satisfy before
// indexing: known kinds, unique attribute keys, childless text nodes.
func (n *Node) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrMalformed)
	}
	switch n.Kind {
	case KindText:
		if len(n.Children) > 0 {
			return fmt.Errorf("%w: text node has %d children", ErrMalformed, len(n.Children))
		}
	case KindElement:
		if n.Tag == "" {
			return fmt.Errorf("%w: element without tag", ErrMalformed)
		}
		seen := make(map[string]struct{}, len(n.Attrs))
		for _, a := range n.Attrs {
			if _, dup := seen[a.Key]; dup {
				return fmt.Errorf("%w: <%s> duplicate attribute %q", ErrMalformed, n.Tag, a.Key)
			}
			seen[a.Key] = struct{}{}
		}
		for _, c := range n.Children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown node kind %d", ErrMalformed, n.Kind)
	}
	return nil
}

// IndexByID maps every StructuralID in the subtree to its node and to its
// parent (nil for the subtree root). Ids are assumed unique.
func IndexByID(root *Node) (nodes map[StructuralID]*Node, parents map[StructuralID]*Node) {
	nodes = make(map[StructuralID]*Node)
	parents = make(map[StructuralID]*Node)
	var visit func(n, parent *Node)
	visit = func(n, parent *Node) {
		nodes[n.ID] = n
		parents[n.ID] = parent
		for _, c := range n.Children {
			visit(c, n)
		}
	}
	if root != nil {
		visit(root, nil)
	}
	return nodes, parents
}

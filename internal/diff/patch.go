package diff

import (
	"fmt"

	"github.com/roach88/vtree/internal/ir"
)

// OpKind names an operation type on the wire and in logs.
type OpKind string

const (
	KindInsert      OpKind = "insert"
	KindRemove      OpKind = "remove"
	KindReplace     OpKind = "replace"
	KindUpdateAttrs OpKind = "update_attrs"
	KindUpdateText  OpKind = "update_text"
	KindMove        OpKind = "move"
)

// Op is one patch operation. The set of implementations is closed.
type Op interface {
	Kind() OpKind
	isOp()
}

// Insert adds Subtree as a child of Parent at Position.
type Insert struct {
	Parent   ir.StructuralID
	Position int
	Subtree  *ir.Node
}

// Remove deletes Target and its subtree.
type Remove struct {
	Target ir.StructuralID
}

// Replace swaps Target for Subtree in place.
type Replace struct {
	Target  ir.StructuralID
	Subtree *ir.Node
}

// AttrChange sets Key to Value, or deletes Key when Removed is true.
type AttrChange struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// UpdateAttrs applies attribute changes to Target.
type UpdateAttrs struct {
	Target  ir.StructuralID
	Changes []AttrChange
}

// UpdateText replaces the text of the text node Target.
type UpdateText struct {
	Target ir.StructuralID
	Text   string
}

// Move places Target as a child of Parent at Position.
type Move struct {
	Target   ir.StructuralID
	Parent   ir.StructuralID
	Position int
}

func (Insert) Kind() OpKind      { return KindInsert }
func (Remove) Kind() OpKind      { return KindRemove }
func (Replace) Kind() OpKind     { return KindReplace }
func (UpdateAttrs) Kind() OpKind { return KindUpdateAttrs }
func (UpdateText) Kind() OpKind  { return KindUpdateText }
func (Move) Kind() OpKind        { return KindMove }

func (Insert) isOp()      {}
func (Remove) isOp()      {}
func (Replace) isOp()     {}
func (UpdateAttrs) isOp() {}
func (UpdateText) isOp()  {}
func (Move) isOp()        {}

func (o Insert) String() string {
	return fmt.Sprintf("insert %s@%d <%s>", o.Parent, o.Position, subtreeLabel(o.Subtree))
}

func (o Remove) String() string { return fmt.Sprintf("remove %s", o.Target) }

func (o Replace) String() string {
	return fmt.Sprintf("replace %s <%s>", o.Target, subtreeLabel(o.Subtree))
}

func (o UpdateAttrs) String() string {
	return fmt.Sprintf("update_attrs %s %v", o.Target, o.Changes)
}

func (o UpdateText) String() string { return fmt.Sprintf("update_text %s %q", o.Target, o.Text) }

func (o Move) String() string {
	return fmt.Sprintf("move %s -> %s@%d", o.Target, o.Parent, o.Position)
}

func subtreeLabel(n *ir.Node) string {
	switch {
	case n == nil:
		return "nil"
	case n.IsText():
		return ir.TextKindKey
	default:
		return n.Tag
	}
}

// Target returns the StructuralID an op addresses: the target node, or the
// parent for Insert.
func Target(op Op) ir.StructuralID {
	switch o := op.(type) {
	case Insert:
		return o.Parent
	case Remove:
		return o.Target
	case Replace:
		return o.Target
	case UpdateAttrs:
		return o.Target
	case UpdateText:
		return o.Target
	case Move:
		return o.Target
	default:
		return 0
	}
}

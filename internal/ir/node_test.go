package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewElementDuplicateAttrsFirstWins(t *testing.T) {
	n := NewElement("a", []Attr{{Key: "href", Value: "/one"}, {Key: "href", Value: "/two"}})
	require.Len(t, n.Attrs, 1)
	v, ok := n.Attr("href")
	assert.True(t, ok)
	assert.Equal(t, "/one", v)
}

func TestSetAndRemoveAttr(t *testing.T) {
	n := NewElement("img", []Attr{{Key: "src", Value: "a.png"}})

	assert.False(t, n.SetAttr("src", "a.png"), "same value is not a change")
	assert.True(t, n.SetAttr("src", "b.png"))
	assert.True(t, n.SetAttr("alt", "B"))
	assert.Equal(t, []Attr{{Key: "src", Value: "b.png"}, {Key: "alt", Value: "B"}}, n.Attrs)

	assert.True(t, n.RemoveAttr("src"))
	assert.False(t, n.RemoveAttr("src"))
	_, ok := n.Attr("src")
	assert.False(t, ok)
}

func TestKindKey(t *testing.T) {
	assert.Equal(t, "p", NewElement("p", nil).KindKey())
	assert.Equal(t, TextKindKey, NewText("p").KindKey())
}

func TestTextContentAndElementChildren(t *testing.T) {
	n := NewElement("p", nil,
		NewText("Hello, "),
		NewElement("em", nil, NewText("world")),
		NewText("!"),
	)
	assert.Equal(t, "Hello, world!", n.TextContent())
	require.Len(t, n.ElementChildren(), 1)
	assert.Equal(t, "em", n.ElementChildren()[0].Tag)
}

func TestWalkSkipsChildren(t *testing.T) {
	n := NewElement("div", nil,
		NewElement("svg", nil, NewElement("path", nil)),
		NewElement("p", nil),
	)
	var tags []string
	n.Walk(func(c *Node) bool {
		tags = append(tags, c.Tag)
		return c.Tag != "svg"
	})
	assert.Equal(t, []string{"div", "svg", "p"}, tags)
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewElement("div", []Attr{{Key: "class", Value: "x"}}, NewElement("p", nil, NewText("a")))
	c := orig.Clone()
	require.True(t, Equal(orig, c))

	c.Attrs[0].Value = "y"
	c.Children[0].Children[0].Text = "b"
	c.Children = append(c.Children, NewText("extra"))

	assert.Equal(t, "x", orig.Attrs[0].Value)
	assert.Equal(t, "a", orig.Children[0].Children[0].Text)
	assert.Len(t, orig.Children, 1)
	assert.Nil(t, (*Node)(nil).Clone())
}

func TestEqual(t *testing.T) {
	a := NewElement("img", []Attr{{Key: "src", Value: "x"}, {Key: "alt", Value: "y"}})
	b := NewElement("img", []Attr{{Key: "alt", Value: "y"}, {Key: "src", Value: "x"}})
	b.ID = 42

	assert.True(t, Equal(a, b), "attr order and ids are ignored")
	assert.False(t, Equal(a, NewElement("img", []Attr{{Key: "src", Value: "x"}})))
	assert.False(t, Equal(NewText("a"), NewText("b")))
	assert.False(t, Equal(a, nil))
	assert.True(t, Equal(nil, nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		ok   bool
	}{
		{name: "element", node: NewElement("div", nil, NewText("x")), ok: true},
		{name: "nil", node: nil},
		{name: "empty tag", node: &Node{Kind: KindElement}},
		{name: "unknown kind", node: &Node{Kind: 9, Tag: "x"}},
		{name: "text with children", node: &Node{Kind: KindText, Children: []*Node{NewText("a")}}},
		{
			name: "duplicate attrs",
			node: &Node{Kind: KindElement, Tag: "a", Attrs: []Attr{{Key: "x"}, {Key: "x"}}},
		},
		{
			name: "nested malformed",
			node: NewElement("div", nil, NewElement("p", nil, &Node{Kind: KindElement})),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}
}

func TestIndexByID(t *testing.T) {
	p := NewElement("p", nil, NewText("x"))
	p.ID = 2
	p.Children[0].ID = 3
	root := NewElement("div", nil, p)
	root.ID = 1

	nodes, parents := IndexByID(root)
	require.Len(t, nodes, 3)
	assert.Same(t, p, nodes[2])
	assert.Nil(t, parents[1])
	assert.Same(t, root, parents[2])
	assert.Same(t, p, parents[3])
}

package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/diff"
	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/testutil"
)

func processed(t *testing.T, root *ir.Node) *ir.Document {
	t.Helper()
	doc, err := index.New(ir.DefaultFamilyTable()).Index(testutil.Raw("/p", root), ir.SeedFromPath("/p"))
	require.NoError(t, err)
	doc, err = ir.Advance(doc, doc.Root, ir.PhaseProcessed)
	require.NoError(t, err)
	return doc
}

func TestRender(t *testing.T) {
	doc := processed(t, testutil.El("body",
		testutil.El("h1", "Fish & Chips"),
		testutil.El("img", testutil.A("src", "a.png"), testutil.A("alt", `say "hi"`)),
		testutil.El("script", "if (a < b) {}"),
	))

	rendered, out, err := Render(doc)
	require.NoError(t, err)
	assert.Equal(t, ir.PhaseRendered, rendered.Phase())
	assert.Equal(t,
		`<body><h1>Fish &amp; Chips</h1><img src="a.png" alt="say &#34;hi&#34;"/><script>if (a < b) {}</script></body>`,
		string(out),
	)
}

func TestRenderWithIDsAndDoctype(t *testing.T) {
	doc := processed(t, testutil.El("html", testutil.El("body", "x")))

	_, out, err := Render(doc, WithIDs(), WithDoctype())
	require.NoError(t, err)
	s := string(out)
	assert.True(t, strings.HasPrefix(s, "<!DOCTYPE html><html "+IDAttr+`="`+doc.Root.ID.String()+`">`), s)
	assert.Contains(t, s, IDAttr+`="`+doc.Root.Children[0].ID.String()+`"`)
}

func TestRenderRequiresProcessed(t *testing.T) {
	doc, err := index.New(ir.DefaultFamilyTable()).Index(testutil.Raw("/p", testutil.El("div")), ir.SeedFromPath("/p"))
	require.NoError(t, err)

	_, _, err = Render(doc)
	require.Error(t, err)
	assert.True(t, ir.IsPhaseError(err))

	rendered, _, err := Render(processed(t, testutil.El("div")))
	require.NoError(t, err)
	_, _, err = Render(rendered)
	assert.True(t, ir.IsPhaseError(err), "rendered is terminal")
}

func TestWireOps(t *testing.T) {
	sub := testutil.El("li", "new")
	sub.ID = 0xabc
	ops := []diff.Op{
		diff.Insert{Parent: 0x1, Position: 0, Subtree: sub},
		diff.Remove{Target: 0x2},
		diff.Move{Target: 0x3, Parent: 0x1, Position: 2},
		diff.UpdateText{Target: 0x4, Text: ""},
		diff.UpdateAttrs{Target: 0x5, Changes: []diff.AttrChange{{Key: "class", Removed: true}}},
	}

	wire, err := WireOps(ops)
	require.NoError(t, err)
	b, err := json.Marshal(wire)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"op":"insert","parent":"1","position":0,"html":"<li data-vid=\"abc\">new</li>"},
		{"op":"remove","target":"2"},
		{"op":"move","target":"3","parent":"1","position":2},
		{"op":"update_text","target":"4","text":""},
		{"op":"update_attrs","target":"5","changes":[{"key":"class","removed":true}]}
	]`, string(b))
}
